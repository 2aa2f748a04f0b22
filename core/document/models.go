package document

import (
	"context"
	"time"

	"github.com/trezcool/chuo/core"
)

// Document is metadata about a file attached to a student record. The bytes
// themselves live outside this system; only what is needed to list and audit
// uploads is kept.
type Document struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"` // bytes
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// NewDocument contains information needed to register a Document on a student.
type NewDocument struct {
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"required,gt=0"`
}

func (nd *NewDocument) Validate(ctx context.Context) error {
	nd.Name = core.CleanString(nd.Name)
	nd.ContentType = core.CleanString(nd.ContentType, true /* lower */)
	return core.Validate.Struct(nd)
}
