package student

import (
	"context"
	"time"

	"github.com/trezcool/chuo/core"
)

// Student is an enrolled student record. Number, CourseID, CourseCode and
// SchoolYear are fixed at registration; the number encodes the latter two.
type Student struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	CourseID   int       `json:"course_id"`
	CourseCode string    `json:"course_code"`
	SchoolYear string    `json:"school_year"`
	IsActive   *bool     `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (s *Student) SetActive(active bool) { s.IsActive = &active }

func (s *Student) Active() bool { return s.IsActive != nil && *s.IsActive }

func (s *Student) FullName() string { return s.FirstName + " " + s.LastName }

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	CourseID   int    `json:"course_id" validate:"required"`
	SchoolYear string `json:"school_year" validate:"required,schoolyear"`
}

func (ns *NewStudent) Validate(ctx context.Context, svc ServiceInterface) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	if ns.Email != "" {
		return svc.CheckEmailUniqueness(ctx, ns.Email)
	}
	return nil
}

// UpdateStudent defines what may be modified on an existing Student.
// The allocated number and its course/year components are immutable.
type UpdateStudent struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	IsActive  *bool  `json:"is_active"`
}

func (us *UpdateStudent) Validate(ctx context.Context, origStu Student, svc ServiceInterface) error {
	if firstName := core.CleanString(us.FirstName); firstName != "" {
		us.FirstName = firstName
	} else {
		us.FirstName = origStu.FirstName
	}

	if lastName := core.CleanString(us.LastName); lastName != "" {
		us.LastName = lastName
	} else {
		us.LastName = origStu.LastName
	}

	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = origStu.Email
	}

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	if us.Email != "" {
		return svc.CheckEmailUniqueness(ctx, us.Email, origStu)
	}
	return nil
}

type QueryFilter struct {
	Search      string    `query:"search"`
	CourseID    int       `query:"course_id"`
	SchoolYear  string    `query:"school_year"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CourseID == 0 && qf.SchoolYear == "" && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolYear = core.CleanString(qf.SchoolYear)
}

// GetFilter looks a single Student up by exactly one of its fields.
type GetFilter struct {
	ID     string
	Number string
	Email  string
}
