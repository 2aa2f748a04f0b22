package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
)

type counterRepository struct {
	exec core.DBExecutor
}

var _ student.CounterRepository = (*counterRepository)(nil) // interface compliance check

func NewCounterRepository(exec core.DBExecutor) *counterRepository {
	return &counterRepository{exec: exec}
}

func (repo counterRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// IncrementCounter bumps the counter for key and returns the new value. The
// upsert is a single statement, so concurrent calls on one key serialize on
// the row lock and each caller gets a distinct value; when run inside a
// caller's transaction the increment rolls back with it.
func (repo counterRepository) IncrementCounter(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error) {
	query := `
		INSERT INTO "counter" ("key", "value") VALUES ($1, 1)
		ON CONFLICT ("key") DO UPDATE SET "value" = "counter"."value" + 1
		RETURNING "value"`
	var value int64
	if err := repo.getExec(exec).QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		return 0, errors.Wrap(err, "incrementing counter")
	}
	return value, nil
}

func (repo counterRepository) GetCounter(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error) {
	var value int64
	err := repo.getExec(exec).QueryRowContext(ctx, `SELECT "value" FROM "counter" WHERE "key" = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, errors.Wrap(err, "reading counter")
	}
	return value, nil
}
