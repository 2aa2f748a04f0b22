package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
)

type auditRepository struct {
	db *DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, entry audit.Entry, exec ...core.DBExecutor) (audit.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry.ID = uuid.New().String()
	repo.db.auditEntries = append(repo.db.auditEntries, &entry)
	return entry, nil
}

func (repo *auditRepository) QueryEntries(ctx context.Context, filter *audit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]audit.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]audit.Entry, 0, len(repo.db.auditEntries))
	for _, entry := range repo.db.auditEntries {
		if filter != nil && !filter.IsEmpty() {
			if filter.Actor != "" && entry.Actor != filter.Actor {
				continue
			}
			if filter.Action != "" && entry.Action != filter.Action {
				continue
			}
			if filter.ObjectType != "" && entry.ObjectType != filter.ObjectType {
				continue
			}
			if filter.ObjectID != "" && entry.ObjectID != filter.ObjectID {
				continue
			}
			if !filter.CreatedFrom.IsZero() && entry.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && entry.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}
