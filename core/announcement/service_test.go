package announcement

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

type repoStub struct {
	mutex         sync.Mutex
	announcements map[string]Announcement
}

func newRepoStub() *repoStub {
	return &repoStub{announcements: make(map[string]Announcement)}
}

func (r *repoStub) CreateAnnouncement(ctx context.Context, ann Announcement, exec ...core.DBExecutor) (Announcement, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ann.ID = uuid.New().String()
	r.announcements[ann.ID] = ann
	return ann, nil
}

func (r *repoStub) QueryAnnouncements(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Announcement, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	announcements := make([]Announcement, 0, len(r.announcements))
	for _, ann := range r.announcements {
		if filter != nil && !filter.IsEmpty() {
			if filter.Audience != "" && ann.Audience != filter.Audience {
				continue
			}
			if filter.CreatedBy != "" && ann.CreatedBy != filter.CreatedBy {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(ann.Title), strings.ToLower(filter.Search)) {
				continue
			}
		}
		announcements = append(announcements, ann)
	}
	return announcements, nil
}

func (r *repoStub) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if ann, ok := r.announcements[id]; ok {
		return ann, nil
	}
	return Announcement{}, ErrNotFound
}

func (r *repoStub) UpdateAnnouncement(ctx context.Context, ann Announcement, exec ...core.DBExecutor) (Announcement, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.announcements[ann.ID]; !ok {
		return Announcement{}, ErrNotFound
	}
	r.announcements[ann.ID] = ann
	return ann, nil
}

func (r *repoStub) DeleteAnnouncementsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := r.announcements[id]; ok {
			delete(r.announcements, id)
			n++
		}
	}
	return n, nil
}

func TestNewAnnouncement_Validate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		na      NewAnnouncement
		wantErr bool
	}{
		{
			name: "valid",
			na:   NewAnnouncement{Title: "Exam schedule", Body: "Finals start June 2.", Audience: AudienceAll},
		},
		{
			name: "audience normalized",
			na:   NewAnnouncement{Title: "Grades due", Body: "Submit by Friday.", Audience: " Professors "},
		},
		{
			name:    "missing title",
			na:      NewAnnouncement{Body: "Finals start June 2.", Audience: AudienceAll},
			wantErr: true,
		},
		{
			name:    "missing body",
			na:      NewAnnouncement{Title: "Exam schedule", Audience: AudienceAll},
			wantErr: true,
		},
		{
			name:    "unknown audience",
			na:      NewAnnouncement{Title: "Exam schedule", Body: "Finals start June 2.", Audience: "students"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())

	na := NewAnnouncement{Title: "Exam schedule", Body: "Finals start June 2.", Audience: AudienceAll}
	ann, err := svc.Create(ctx, na, "author-id")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if ann.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if ann.CreatedBy != "author-id" {
		t.Errorf("Create() CreatedBy = %q, want %q", ann.CreatedBy, "author-id")
	}
	if ann.PublishedAt.IsZero() {
		t.Error("Create() did not default PublishedAt")
	}
	if !ann.Published() {
		t.Error("Create() announcement not published by default")
	}

	// a future PublishedAt is preserved and hides the announcement
	future := time.Now().UTC().Add(24 * time.Hour)
	na.PublishedAt = future
	ann, err = svc.Create(ctx, na, "author-id")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if !ann.PublishedAt.Equal(future) {
		t.Errorf("Create() PublishedAt = %v, want %v", ann.PublishedAt, future)
	}
	if ann.Published() {
		t.Error("Create() future announcement already published")
	}
}

func TestService_Query_filtersAudience(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())

	for _, audience := range AllAudiences {
		if _, err := svc.Create(ctx, NewAnnouncement{
			Title: "Notice " + audience, Body: "body", Audience: audience,
		}, "author-id"); err != nil {
			t.Fatalf("Create(): %v", err)
		}
	}

	announcements, err := svc.Query(ctx, &QueryFilter{Audience: " Registrars "}, nil)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if len(announcements) != 1 || announcements[0].Audience != AudienceRegistrars {
		t.Errorf("Query() = %+v, want single registrars announcement", announcements)
	}

	announcements, err = svc.Query(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if len(announcements) != len(AllAudiences) {
		t.Errorf("Query() returned %d announcements, want %d", len(announcements), len(AllAudiences))
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())

	created, err := svc.Create(ctx, NewAnnouncement{
		Title: "Exam schedule", Body: "Finals start June 2.", Audience: AudienceAll,
	}, "author-id")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	ua := UpdateAnnouncement{Title: "Exam schedule (updated)", Audience: AudienceProfessors}
	if err = ua.Validate(ctx, created); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if ua.Body != created.Body {
		t.Errorf("Validate() body = %q, want original %q", ua.Body, created.Body)
	}

	updated, err := svc.Update(ctx, created.ID, ua)
	if err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if updated.Title != "Exam schedule (updated)" {
		t.Errorf("Update() title = %q", updated.Title)
	}
	if updated.Audience != AudienceProfessors {
		t.Errorf("Update() audience = %q, want %q", updated.Audience, AudienceProfessors)
	}
	if updated.CreatedBy != created.CreatedBy {
		t.Errorf("Update() changed CreatedBy to %q", updated.CreatedBy)
	}

	if _, err = svc.Update(ctx, "nope", ua); errors.Cause(err) != ErrNotFound {
		t.Errorf("Update() error = %v, want %v", err, ErrNotFound)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())

	created, err := svc.Create(ctx, NewAnnouncement{
		Title: "Exam schedule", Body: "Finals start June 2.", Audience: AudienceAll,
	}, "author-id")
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if err = svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}
	if _, err = svc.GetByID(ctx, created.ID); errors.Cause(err) != ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want %v", err, ErrNotFound)
	}
}

func TestAnnouncement_VisibleTo(t *testing.T) {
	tests := []struct {
		audience                         string
		isAdmin, isRegistrar, isProfessor bool
		want                             bool
	}{
		{AudienceAll, false, false, false, true},
		{AudienceRegistrars, false, true, false, true},
		{AudienceRegistrars, false, false, true, false},
		{AudienceProfessors, false, false, true, true},
		{AudienceProfessors, false, true, false, false},
		{AudienceRegistrars, true, false, false, true}, // admins see everything
	}
	for _, tt := range tests {
		ann := Announcement{Audience: tt.audience}
		if got := ann.VisibleTo(tt.isAdmin, tt.isRegistrar, tt.isProfessor); got != tt.want {
			t.Errorf("VisibleTo(%q, admin=%t, registrar=%t, professor=%t) = %t, want %t",
				tt.audience, tt.isAdmin, tt.isRegistrar, tt.isProfessor, got, tt.want)
		}
	}
}
