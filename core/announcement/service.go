package announcement

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement, exec ...core.DBExecutor) (Announcement, error)
		QueryAnnouncements(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, ann Announcement, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncementsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, na NewAnnouncement, createdBy string) (Announcement, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Announcement, error)
		GetByID(ctx context.Context, id string) (Announcement, error)
		Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error)
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

func (svc *service) Create(ctx context.Context, na NewAnnouncement, createdBy string) (Announcement, error) {
	now := time.Now().UTC()
	publishedAt := na.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = now
	}
	ann := Announcement{
		Title:       na.Title,
		Body:        na.Body,
		Audience:    na.Audience,
		CreatedBy:   createdBy,
		PublishedAt: publishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Announcement, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryAnnouncements(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	orig, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}
	orig.Title = ua.Title
	orig.Body = ua.Body
	orig.Audience = ua.Audience
	orig.PublishedAt = ua.PublishedAt
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAnnouncement(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAnnouncementsByID(ctx, ids)
	return err
}
