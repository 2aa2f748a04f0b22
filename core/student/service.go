package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
)

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrEmailExists = errors.New("a student with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedStudents []Student, exec ...core.DBExecutor) error
		CreateStudent(ctx context.Context, stu Student, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Student, error)
		UpdateStudent(ctx context.Context, stu Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(ctx context.Context, email string, exclStudents ...Student) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByNumber(ctx context.Context, number string) (Student, error)
		Update(ctx context.Context, id string, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...string) error
		NextSequence(ctx context.Context, courseID int, schoolYear string) (int64, error)
	}

	service struct {
		db    core.DB // nil when the backing store has no transaction support
		repo  Repository
		alloc *NumberAllocator
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, counters CounterRepository) *service {
	return &service{
		db:    db,
		repo:  repo,
		alloc: NewNumberAllocator(counters),
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, exclStudents ...Student) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclStudents); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return err
	}
	return nil
}

// Create allocates a student number and inserts the record in one unit:
// with a transactional store both happen in a single transaction, so a
// failed insert also rolls the counter increment back.
func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	stu := Student{
		FirstName:  ns.FirstName,
		LastName:   ns.LastName,
		Email:      ns.Email,
		CourseID:   ns.CourseID,
		CourseCode: CourseCode(ns.CourseID),
		SchoolYear: ns.SchoolYear,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	stu.SetActive(true)

	if svc.db == nil {
		return svc.create(ctx, stu, ns)
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return Student{}, errors.Wrap(err, "beginning transaction")
	}
	created, err := svc.create(ctx, stu, ns, tx)
	if err != nil {
		_ = tx.Rollback()
		return Student{}, err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return Student{}, errors.Wrap(err, "committing transaction")
	}
	return created, nil
}

func (svc *service) create(ctx context.Context, stu Student, ns NewStudent, exec ...core.DBExecutor) (Student, error) {
	number, err := svc.alloc.Allocate(ctx, ns.CourseID, ns.SchoolYear, exec...)
	if err != nil {
		return Student{}, err
	}
	stu.Number = number
	return svc.repo.CreateStudent(ctx, stu, exec...)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByNumber(ctx context.Context, number string) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{Number: core.CleanString(number, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudent(ctx, GetFilter{ID: id})
	if err != nil {
		return Student{}, err
	}
	orig.FirstName = us.FirstName
	orig.LastName = us.LastName
	orig.Email = us.Email
	if us.IsActive != nil {
		orig.IsActive = us.IsActive
	}
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, orig)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, ids)
	return err
}

// NextSequence estimates the next sequence for a course and school year.
// Display only; see NumberAllocator.PeekNextSequence.
func (svc *service) NextSequence(ctx context.Context, courseID int, schoolYear string) (int64, error) {
	return svc.alloc.PeekNextSequence(ctx, CourseCode(courseID), schoolYear)
}
