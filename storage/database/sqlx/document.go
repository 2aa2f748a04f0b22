package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/document"
)

type documentRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	Name        string      `db:"name"`
	ContentType string      `db:"content_type"`
	Size        int64       `db:"size"`
	UploadedBy  null.String `db:"uploaded_by"`
	CreatedAt   null.Time   `db:"created_at"`
}

func (r *documentRow) fromModel(doc document.Document) {
	r.ID = doc.ID
	r.StudentID = doc.StudentID
	r.Name = doc.Name
	r.ContentType = doc.ContentType
	r.Size = doc.Size
	r.UploadedBy = null.NewString(doc.UploadedBy, doc.UploadedBy != "")
	r.CreatedAt = null.NewTime(doc.CreatedAt.UTC(), !doc.CreatedAt.IsZero())
}

func (r *documentRow) toModel() document.Document {
	return document.Document{
		ID:          r.ID,
		StudentID:   r.StudentID,
		Name:        r.Name,
		ContentType: r.ContentType,
		Size:        r.Size,
		UploadedBy:  r.UploadedBy.String,
		CreatedAt:   r.CreatedAt.Time,
	}
}

type documentRepository struct {
	exec core.DBExecutor
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(exec core.DBExecutor) *documentRepository {
	return &documentRepository{exec: exec}
}

func (repo documentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo documentRepository) queryRows(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]document.Document, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docRows []documentRow
	if err = sqlx.StructScan(rows, &docRows); err != nil {
		return nil, err
	}
	documents := make([]document.Document, 0, len(docRows))
	for _, r := range docRows {
		documents = append(documents, r.toModel())
	}
	return documents, nil
}

func (repo documentRepository) CreateDocument(ctx context.Context, doc document.Document, exec ...core.DBExecutor) (document.Document, error) {
	doc.ID = uuid.New().String()
	var r documentRow
	r.fromModel(doc)

	query := `
		INSERT INTO "document" ("id", "student_id", "name", "content_type", "size", "uploaded_by", "created_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.StudentID, r.Name, r.ContentType, r.Size, r.UploadedBy, r.CreatedAt)
	if err != nil {
		return document.Document{}, errors.Wrap(err, "inserting document")
	}
	return doc, nil
}

func (repo documentRepository) QueryDocuments(ctx context.Context, studentID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]document.Document, error) {
	query := `SELECT * FROM "document" WHERE "student_id" = $1`
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + orderList[0]
		for _, o := range orderList[1:] {
			query += ", " + o
		}
	}

	documents, err := repo.queryRows(ctx, repo.getExec(exec), query, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	return documents, nil
}

func (repo documentRepository) GetDocument(ctx context.Context, id string, exec ...core.DBExecutor) (document.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return document.Document{}, document.ErrNotFound
	}
	documents, err := repo.queryRows(ctx, repo.getExec(exec), `SELECT * FROM "document" WHERE "id" = $1`, id)
	if err != nil {
		return document.Document{}, errors.Wrap(err, "finding document")
	}
	if len(documents) == 0 {
		return document.Document{}, document.ErrNotFound
	}
	return documents[0], nil
}

func (repo documentRepository) DeleteDocumentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "document" WHERE "id" = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting documents")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting documents")
	}
	return int(cnt), nil
}
