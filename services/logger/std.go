package logsvc

import (
	"log"
	"os"

	"github.com/trezcool/chuo/core"
)

// StdLogger logs to stderr only. Used in DEV|TEST mode where shipping events
// to Rollbar is unwanted.
type StdLogger struct {
	std     *log.Logger
	enabled bool
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	if std == nil {
		std = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	}
	return &StdLogger{std: std, enabled: true}
}

func (l *StdLogger) Enable(enabled bool) { l.enabled = enabled }

func (l *StdLogger) print(level, msg string, args []interface{}) {
	if !l.enabled {
		return
	}
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }

func (l *StdLogger) Info(msg string, args ...interface{}) { l.print("INFO", msg, args) }

func (l *StdLogger) Warn(msg string, args ...interface{}) { l.print("WARN", msg, args) }

func (l *StdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l *StdLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
