package document

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

type repoStub struct {
	mutex     sync.Mutex
	documents map[string]Document
}

func newRepoStub() *repoStub {
	return &repoStub{documents: make(map[string]Document)}
}

func (r *repoStub) CreateDocument(ctx context.Context, doc Document, exec ...core.DBExecutor) (Document, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	doc.ID = uuid.New().String()
	r.documents[doc.ID] = doc
	return doc, nil
}

func (r *repoStub) QueryDocuments(ctx context.Context, studentID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Document, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var documents []Document
	for _, doc := range r.documents {
		if doc.StudentID == studentID {
			documents = append(documents, doc)
		}
	}
	return documents, nil
}

func (r *repoStub) GetDocument(ctx context.Context, id string, exec ...core.DBExecutor) (Document, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if doc, ok := r.documents[id]; ok {
		return doc, nil
	}
	return Document{}, ErrNotFound
}

func (r *repoStub) DeleteDocumentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := r.documents[id]; ok {
			delete(r.documents, id)
			n++
		}
	}
	return n, nil
}

func TestNewDocument_Validate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		nd      NewDocument
		wantErr bool
	}{
		{name: "valid", nd: NewDocument{Name: "transcript.pdf", ContentType: "application/pdf", Size: 1024}},
		{name: "missing name", nd: NewDocument{ContentType: "application/pdf", Size: 1024}, wantErr: true},
		{name: "missing content type", nd: NewDocument{Name: "transcript.pdf", Size: 1024}, wantErr: true},
		{name: "zero size", nd: NewDocument{Name: "transcript.pdf", ContentType: "application/pdf"}, wantErr: true},
		{name: "negative size", nd: NewDocument{Name: "transcript.pdf", ContentType: "application/pdf", Size: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nd.Validate(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())

	doc, err := svc.Create(ctx, "student-1", NewDocument{
		Name: "transcript.pdf", ContentType: "application/pdf", Size: 1024,
	}, "registrar-id")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if doc.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if doc.UploadedBy != "registrar-id" {
		t.Errorf("Create() UploadedBy = %q, want %q", doc.UploadedBy, "registrar-id")
	}
	if doc.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}

	if _, err = svc.Create(ctx, "student-2", NewDocument{
		Name: "id-card.png", ContentType: "image/png", Size: 2048,
	}, "registrar-id"); err != nil {
		t.Fatalf("Create(): %v", err)
	}

	documents, err := svc.QueryByStudent(ctx, "student-1", nil)
	if err != nil {
		t.Fatalf("QueryByStudent(): %v", err)
	}
	if len(documents) != 1 || documents[0].ID != doc.ID {
		t.Errorf("QueryByStudent() = %+v, want the single student-1 document", documents)
	}

	got, err := svc.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if got.Name != "transcript.pdf" {
		t.Errorf("GetByID() name = %q", got.Name)
	}

	if err = svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err = svc.GetByID(ctx, doc.ID); errors.Cause(err) != ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want %v", err, ErrNotFound)
	}
}
