package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

// Actions recorded against an object.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

var ErrNotFound = errors.New("audit entry not found")

// Entry is one recorded mutation.
type Entry struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"` // account ID, or "system"
	Action     string    `json:"action"`
	ObjectType string    `json:"object_type"`
	ObjectID   string    `json:"object_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	Actor       string    `query:"actor"`
	Action      string    `query:"action"`
	ObjectType  string    `query:"object_type"`
	ObjectID    string    `query:"object_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Actor == "" && qf.Action == "" && qf.ObjectType == "" && qf.ObjectID == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Actor = core.CleanString(qf.Actor)
	qf.Action = core.CleanString(qf.Action, true /* lower */)
	qf.ObjectType = core.CleanString(qf.ObjectType, true /* lower */)
	qf.ObjectID = core.CleanString(qf.ObjectID)
}

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		QueryEntries(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Entry, error)
	}

	ServiceInterface interface {
		Record(ctx context.Context, actor, action, objectType, objectID, detail string)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Entry, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, logger core.Logger) *service {
	return &service{repo: repo, logger: logger}
}

// Record writes an audit entry. A failed write is logged and swallowed; the
// request being audited must never fail because of it.
func (svc *service) Record(ctx context.Context, actor, action, objectType, objectID, detail string) {
	entry := Entry{
		Actor:      actor,
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := svc.repo.CreateEntry(ctx, entry); err != nil {
		svc.logger.Error("failed to record audit entry", "error", err, "action", action, "object_type", objectType)
	}
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Entry, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryEntries(ctx, filter, ordering)
}
