package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/audit"
)

type auditRow struct {
	ID         string      `db:"id"`
	Actor      string      `db:"actor"`
	Action     string      `db:"action"`
	ObjectType string      `db:"object_type"`
	ObjectID   null.String `db:"object_id"`
	Detail     null.String `db:"detail"`
	CreatedAt  null.Time   `db:"created_at"`
}

func (r *auditRow) fromModel(entry audit.Entry) {
	r.ID = entry.ID
	r.Actor = entry.Actor
	r.Action = entry.Action
	r.ObjectType = entry.ObjectType
	r.ObjectID = null.NewString(entry.ObjectID, entry.ObjectID != "")
	r.Detail = null.NewString(entry.Detail, entry.Detail != "")
	r.CreatedAt = null.NewTime(entry.CreatedAt.UTC(), !entry.CreatedAt.IsZero())
}

func (r *auditRow) toModel() audit.Entry {
	return audit.Entry{
		ID:         r.ID,
		Actor:      r.Actor,
		Action:     r.Action,
		ObjectType: r.ObjectType,
		ObjectID:   r.ObjectID.String,
		Detail:     r.Detail.String,
		CreatedAt:  r.CreatedAt.Time,
	}
}

type auditRepository struct {
	exec core.DBExecutor
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(exec core.DBExecutor) *auditRepository {
	return &auditRepository{exec: exec}
}

func (repo auditRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo auditRepository) CreateEntry(ctx context.Context, entry audit.Entry, exec ...core.DBExecutor) (audit.Entry, error) {
	entry.ID = uuid.New().String()
	var r auditRow
	r.fromModel(entry)

	query := `
		INSERT INTO "audit_log" ("id", "actor", "action", "object_type", "object_id", "detail", "created_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.Actor, r.Action, r.ObjectType, r.ObjectID, r.Detail, r.CreatedAt)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return entry, nil
}

func (repo auditRepository) QueryEntries(ctx context.Context, filter *audit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]audit.Entry, error) {
	query := `SELECT * FROM "audit_log"`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Actor != "" {
			conds = append(conds, fmt.Sprintf(`"actor" = %s`, arg(filter.Actor)))
		}
		if filter.Action != "" {
			conds = append(conds, fmt.Sprintf(`"action" = %s`, arg(filter.Action)))
		}
		if filter.ObjectType != "" {
			conds = append(conds, fmt.Sprintf(`"object_type" = %s`, arg(filter.ObjectType)))
		}
		if filter.ObjectID != "" {
			conds = append(conds, fmt.Sprintf(`"object_id" = %s`, arg(filter.ObjectID)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf(`"created_at" >= %s`, arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf(`"created_at" <= %s`, arg(filter.CreatedTo.UTC())))
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += ` ORDER BY "created_at" DESC`
	}

	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	defer func() { _ = rows.Close() }()

	var entryRows []auditRow
	if err = sqlx.StructScan(rows, &entryRows); err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}
	entries := make([]audit.Entry, 0, len(entryRows))
	for _, r := range entryRows {
		entries = append(entries, r.toModel())
	}
	return entries, nil
}
