package document

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var ErrNotFound = errors.New("document not found")

type (
	Repository interface {
		CreateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error)
		QueryDocuments(ctx context.Context, studentID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Document, error)
		GetDocument(ctx context.Context, id string, exec ...core.DBExecutor) (Document, error)
		DeleteDocumentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, studentID string, nd NewDocument, uploadedBy string) (Document, error)
		QueryByStudent(ctx context.Context, studentID string, ordering []core.DBOrdering) ([]Document, error)
		GetByID(ctx context.Context, id string) (Document, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, studentID string, nd NewDocument, uploadedBy string) (Document, error) {
	doc := Document{
		StudentID:   studentID,
		Name:        nd.Name,
		ContentType: nd.ContentType,
		Size:        nd.Size,
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateDocument(ctx, doc)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string, ordering []core.DBOrdering) ([]Document, error) {
	return svc.repo.QueryDocuments(ctx, studentID, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Document, error) {
	return svc.repo.GetDocument(ctx, id)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteDocumentsByID(ctx, ids)
	return err
}
