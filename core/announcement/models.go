package announcement

import (
	"context"
	"time"

	"github.com/trezcool/chuo/core"
)

// Audiences an announcement can target. "all" reaches every staff member.
const (
	AudienceAll        = "all"
	AudienceRegistrars = "registrars"
	AudienceProfessors = "professors"
)

var AllAudiences = []string{AudienceAll, AudienceRegistrars, AudienceProfessors}

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Audience    string    `json:"audience"`
	CreatedBy   string    `json:"created_by"` // account ID of the author
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Published reports whether the announcement is visible yet.
func (a *Announcement) Published() bool {
	return !a.PublishedAt.IsZero() && !a.PublishedAt.After(time.Now().UTC())
}

// VisibleTo reports whether an audience tag (a role group) may read the
// announcement. Admins see everything.
func (a *Announcement) VisibleTo(isAdmin, isRegistrar, isProfessor bool) bool {
	if isAdmin || a.Audience == AudienceAll {
		return true
	}
	switch a.Audience {
	case AudienceRegistrars:
		return isRegistrar
	case AudienceProfessors:
		return isProfessor
	}
	return false
}

// NewAnnouncement contains information needed to publish a new Announcement.
type NewAnnouncement struct {
	Title       string    `json:"title" validate:"required"`
	Body        string    `json:"body" validate:"required"`
	Audience    string    `json:"audience" validate:"required,audience"`
	PublishedAt time.Time `json:"published_at"`
}

func (na *NewAnnouncement) Validate(ctx context.Context) error {
	na.Title = core.CleanString(na.Title)
	na.Audience = core.CleanString(na.Audience, true /* lower */)
	return core.Validate.Struct(na)
}

type UpdateAnnouncement struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Audience    string    `json:"audience" validate:"omitempty,audience"`
	PublishedAt time.Time `json:"published_at"`
}

func (ua *UpdateAnnouncement) Validate(ctx context.Context, origAnn Announcement) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = origAnn.Title
	}
	if ua.Body == "" {
		ua.Body = origAnn.Body
	}
	if audience := core.CleanString(ua.Audience, true /* lower */); audience != "" {
		ua.Audience = audience
	} else {
		ua.Audience = origAnn.Audience
	}
	if ua.PublishedAt.IsZero() {
		ua.PublishedAt = origAnn.PublishedAt
	}
	return core.Validate.Struct(ua)
}

type QueryFilter struct {
	Search        string    `query:"search"`
	Audience      string    `query:"audience"`
	CreatedBy     string    `query:"created_by"`
	PublishedFrom time.Time `query:"published_from"`
	PublishedTo   time.Time `query:"published_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Audience == "" && qf.CreatedBy == "" &&
		qf.PublishedFrom.IsZero() && qf.PublishedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Audience = core.CleanString(qf.Audience, true /* lower */)
}
