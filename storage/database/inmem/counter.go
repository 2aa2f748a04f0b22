package inmemdb

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
)

type counterRepository struct {
	db *DB
}

var _ student.CounterRepository = (*counterRepository)(nil) // interface compliance check

func NewCounterRepository(db *DB) *counterRepository {
	return &counterRepository{db: db}
}

// IncrementCounter serializes concurrent increments on the table mutex so
// each caller observes a distinct value, matching the durable store's
// single-statement upsert semantics.
func (repo *counterRepository) IncrementCounter(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.counters[key]++
	return repo.db.counters[key], nil
}

func (repo *counterRepository) GetCounter(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.counters[key], nil
}
