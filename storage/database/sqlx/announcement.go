package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/announcement"
)

type announcementRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Body        string      `db:"body"`
	Audience    string      `db:"audience"`
	CreatedBy   null.String `db:"created_by"`
	PublishedAt null.Time   `db:"published_at"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

func (r *announcementRow) fromModel(ann announcement.Announcement) {
	r.ID = ann.ID
	r.Title = ann.Title
	r.Body = ann.Body
	r.Audience = ann.Audience
	r.CreatedBy = null.NewString(ann.CreatedBy, ann.CreatedBy != "")
	r.PublishedAt = null.NewTime(ann.PublishedAt.UTC(), !ann.PublishedAt.IsZero())
	r.CreatedAt = null.NewTime(ann.CreatedAt.UTC(), !ann.CreatedAt.IsZero())
	r.UpdatedAt = null.NewTime(ann.UpdatedAt.UTC(), !ann.UpdatedAt.IsZero())
}

func (r *announcementRow) toModel() announcement.Announcement {
	return announcement.Announcement{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Body,
		Audience:    r.Audience,
		CreatedBy:   r.CreatedBy.String,
		PublishedAt: r.PublishedAt.Time,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type announcementRepository struct {
	exec core.DBExecutor
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor) *announcementRepository {
	return &announcementRepository{exec: exec}
}

func (repo announcementRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo announcementRepository) queryRows(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]announcement.Announcement, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var annRows []announcementRow
	if err = sqlx.StructScan(rows, &annRows); err != nil {
		return nil, err
	}
	announcements := make([]announcement.Announcement, 0, len(annRows))
	for _, r := range annRows {
		announcements = append(announcements, r.toModel())
	}
	return announcements, nil
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	ann.ID = uuid.New().String()
	var r announcementRow
	r.fromModel(ann)

	query := `
		INSERT INTO "announcement" ("id", "title", "body", "audience", "created_by", "published_at", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.Title, r.Body, r.Audience, r.CreatedBy, r.PublishedAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context, filter *announcement.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]announcement.Announcement, error) {
	query := `SELECT * FROM "announcement"`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf(`("title" ILIKE %[1]s OR "body" ILIKE %[1]s)`, val))
		}
		if filter.Audience != "" {
			conds = append(conds, fmt.Sprintf(`"audience" = %s`, arg(filter.Audience)))
		}
		if filter.CreatedBy != "" {
			conds = append(conds, fmt.Sprintf(`"created_by" = %s`, arg(filter.CreatedBy)))
		}
		if !filter.PublishedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf(`"published_at" >= %s`, arg(filter.PublishedFrom.UTC())))
		}
		if !filter.PublishedTo.IsZero() {
			conds = append(conds, fmt.Sprintf(`"published_at" <= %s`, arg(filter.PublishedTo.UTC())))
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
	}

	announcements, err := repo.queryRows(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return announcements, nil
}

func (repo announcementRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (announcement.Announcement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	announcements, err := repo.queryRows(ctx, repo.getExec(exec), `SELECT * FROM "announcement" WHERE "id" = $1`, id)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "finding announcement")
	}
	if len(announcements) == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return announcements[0], nil
}

func (repo announcementRepository) UpdateAnnouncement(ctx context.Context, ann announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	var r announcementRow
	r.fromModel(ann)

	query := `
		UPDATE "announcement"
		SET "title" = $2, "body" = $3, "audience" = $4, "published_at" = $5, "updated_at" = $6
		WHERE "id" = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.Title, r.Body, r.Audience, r.PublishedAt, r.UpdatedAt)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return ann, nil
}

func (repo announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "announcement" WHERE "id" = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting announcements")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting announcements")
	}
	return int(cnt), nil
}
