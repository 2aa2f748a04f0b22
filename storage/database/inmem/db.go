// Package inmemdb provides mutex-guarded in-memory repositories for tests
// and local development. It has no transaction support; services detect the
// missing core.DB and skip transaction management.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/document"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
)

type DB struct {
	mutex         sync.RWMutex
	users         map[string]*user.User
	students      map[string]*student.Student
	counters      map[string]int64
	announcements map[string]*announcement.Announcement
	documents     map[string]*document.Document
	auditEntries  []*audit.Entry
}

func Open() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		students:      make(map[string]*student.Student),
		counters:      make(map[string]int64),
		announcements: make(map[string]*announcement.Announcement),
		documents:     make(map[string]*document.Document),
	}
}

func matches(keyword string, fields ...string) bool {
	keyword = strings.ToLower(keyword)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	return false
}
