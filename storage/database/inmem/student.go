package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) isExcluded(stu *student.Student, excludedStudents []student.Student) bool {
	for _, excl := range excludedStudents {
		if excl.ID == stu.ID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedStudents []student.Student, exec ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, stu := range repo.db.students {
		if repo.isExcluded(stu, excludedStudents) {
			continue
		}
		if email != "" && stu.Email == email {
			return student.ErrEmailExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stu.ID = uuid.New().String()
	repo.db.students[stu.ID] = &stu
	return stu, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, stu := range repo.db.students {
		if filter != nil && !filter.IsEmpty() {
			if filter.Search != "" && !matches(filter.Search, stu.FirstName, stu.LastName, stu.Number, stu.Email) {
				continue
			}
			if filter.CourseID != 0 && stu.CourseID != filter.CourseID {
				continue
			}
			if filter.SchoolYear != "" && stu.SchoolYear != filter.SchoolYear {
				continue
			}
			if filter.IsActive != nil && stu.Active() != *filter.IsActive {
				continue
			}
			if !filter.CreatedFrom.IsZero() && stu.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && stu.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		students = append(students, *stu)
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if stu, ok := repo.db.students[filter.ID]; ok {
			return *stu, nil
		}
		return student.Student{}, student.ErrNotFound
	}

	for _, stu := range repo.db.students {
		switch {
		case filter.Number != "" && strings.EqualFold(stu.Number, filter.Number):
			return *stu, nil
		case filter.Email != "" && stu.Email == filter.Email:
			return *stu, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[stu.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.students[stu.ID] = &stu
	return stu, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.students[id]; ok {
			delete(repo.db.students, id)
			cnt++
		}
	}
	return cnt, nil
}
