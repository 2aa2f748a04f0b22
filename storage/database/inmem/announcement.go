package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/announcement"
)

type announcementRepository struct {
	db *DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ann.ID = uuid.New().String()
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context, filter *announcement.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	announcements := make([]announcement.Announcement, 0, len(repo.db.announcements))
	for _, ann := range repo.db.announcements {
		if filter != nil && !filter.IsEmpty() {
			if filter.Search != "" && !matches(filter.Search, ann.Title, ann.Body) {
				continue
			}
			if filter.Audience != "" && ann.Audience != filter.Audience {
				continue
			}
			if filter.CreatedBy != "" && ann.CreatedBy != filter.CreatedBy {
				continue
			}
			if !filter.PublishedFrom.IsZero() && ann.PublishedAt.Before(filter.PublishedFrom) {
				continue
			}
			if !filter.PublishedTo.IsZero() && ann.PublishedAt.After(filter.PublishedTo) {
				continue
			}
		}
		announcements = append(announcements, *ann)
	}
	return announcements, nil
}

func (repo *announcementRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ann, ok := repo.db.announcements[id]; ok {
		return *ann, nil
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, ann announcement.Announcement, exec ...core.DBExecutor) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.announcements[ann.ID]; !ok {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	repo.db.announcements[ann.ID] = &ann
	return ann, nil
}

func (repo *announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.announcements[id]; ok {
			delete(repo.db.announcements, id)
			cnt++
		}
	}
	return cnt, nil
}
