package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor can execute queries. Both *sql.DB and *sql.Tx satisfy it,
	// so repositories can run inside or outside a transaction transparently.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	// DB can additionally open transactions. Wrap a *sql.DB with NewDB.
	DB interface {
		DBExecutor

		Begin() (DBTransactor, error)
		BeginTx(context.Context, *sql.TxOptions) (DBTransactor, error)
	}

	// DBTransactor is an open transaction. *sql.Tx satisfies it.
	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type sqlDB struct{ *sql.DB }

// NewDB adapts a *sql.DB to the DB interface.
func NewDB(db *sql.DB) DB { return sqlDB{db} }

func (d sqlDB) Begin() (DBTransactor, error) { return d.DB.Begin() }

func (d sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (DBTransactor, error) {
	return d.DB.BeginTx(ctx, opts)
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
