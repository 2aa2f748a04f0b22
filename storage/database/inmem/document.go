package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/document"
)

type documentRepository struct {
	db *DB
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *DB) *documentRepository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(ctx context.Context, doc document.Document, exec ...core.DBExecutor) (document.Document, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	doc.ID = uuid.New().String()
	repo.db.documents[doc.ID] = &doc
	return doc, nil
}

func (repo *documentRepository) QueryDocuments(ctx context.Context, studentID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]document.Document, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	documents := make([]document.Document, 0)
	for _, doc := range repo.db.documents {
		if doc.StudentID == studentID {
			documents = append(documents, *doc)
		}
	}
	return documents, nil
}

func (repo *documentRepository) GetDocument(ctx context.Context, id string, exec ...core.DBExecutor) (document.Document, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if doc, ok := repo.db.documents[id]; ok {
		return *doc, nil
	}
	return document.Document{}, document.ErrNotFound
}

func (repo *documentRepository) DeleteDocumentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.documents[id]; ok {
			delete(repo.db.documents, id)
			cnt++
		}
	}
	return cnt, nil
}
