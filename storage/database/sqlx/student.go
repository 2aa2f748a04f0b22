package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/student"
)

type studentRow struct {
	ID         string      `db:"id"`
	Number     string      `db:"number"`
	FirstName  string      `db:"first_name"`
	LastName   string      `db:"last_name"`
	Email      null.String `db:"email"`
	CourseID   int         `db:"course_id"`
	CourseCode string      `db:"course_code"`
	SchoolYear string      `db:"school_year"`
	IsActive   null.Bool   `db:"is_active"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

func (r *studentRow) fromModel(stu student.Student) {
	r.ID = stu.ID
	r.Number = stu.Number
	r.FirstName = stu.FirstName
	r.LastName = stu.LastName
	r.Email = null.NewString(stu.Email, stu.Email != "")
	r.CourseID = stu.CourseID
	r.CourseCode = stu.CourseCode
	r.SchoolYear = stu.SchoolYear
	r.IsActive = null.BoolFromPtr(stu.IsActive)
	r.CreatedAt = null.NewTime(stu.CreatedAt.UTC(), !stu.CreatedAt.IsZero())
	r.UpdatedAt = null.NewTime(stu.UpdatedAt.UTC(), !stu.UpdatedAt.IsZero())
}

func (r *studentRow) toModel() student.Student {
	return student.Student{
		ID:         r.ID,
		Number:     r.Number,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email.String,
		CourseID:   r.CourseID,
		CourseCode: r.CourseCode,
		SchoolYear: r.SchoolYear,
		IsActive:   r.IsActive.Ptr(),
		CreatedAt:  r.CreatedAt.Time,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo studentRepository) queryRows(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]student.Student, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var studentRows []studentRow
	if err = sqlx.StructScan(rows, &studentRows); err != nil {
		return nil, err
	}
	students := make([]student.Student, 0, len(studentRows))
	for _, r := range studentRows {
		students = append(students, r.toModel())
	}
	return students, nil
}

func (repo studentRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedStudents []student.Student, exec ...core.DBExecutor) error {
	query := `SELECT COUNT(*) FROM "student" WHERE "email" = $1`
	args := []interface{}{email}
	if len(excludedStudents) > 0 {
		ids := make([]string, 0, len(excludedStudents))
		for _, stu := range excludedStudents {
			ids = append(ids, stu.ID)
		}
		query += ` AND "id" != ALL($2)`
		args = append(args, pq.StringArray(ids))
	}

	var cnt int
	if err := repo.getExec(exec).QueryRowContext(ctx, query, args...).Scan(&cnt); err != nil {
		return errors.Wrap(err, "checking student email uniqueness")
	}
	if cnt > 0 {
		return student.ErrEmailExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	stu.ID = uuid.New().String()
	var r studentRow
	r.fromModel(stu)

	query := `
		INSERT INTO "student" ("id", "number", "first_name", "last_name", "email", "course_id", "course_code", "school_year", "is_active", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.Number, r.FirstName, r.LastName, r.Email, r.CourseID, r.CourseCode, r.SchoolYear, r.IsActive, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return stu, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	query := `SELECT * FROM "student"`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// students with a name, number or email matching the search keyword
		if filter.Search != "" {
			val := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf(
				`("first_name" ILIKE %[1]s OR "last_name" ILIKE %[1]s OR "number" ILIKE %[1]s OR "email" ILIKE %[1]s)`, val))
		}
		if filter.CourseID != 0 {
			conds = append(conds, fmt.Sprintf(`"course_id" = %s`, arg(filter.CourseID)))
		}
		if filter.SchoolYear != "" {
			conds = append(conds, fmt.Sprintf(`"school_year" = %s`, arg(filter.SchoolYear)))
		}
		if filter.IsActive != nil {
			conds = append(conds, fmt.Sprintf(`"is_active" = %s`, arg(*filter.IsActive)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, fmt.Sprintf(`"created_at" >= %s`, arg(filter.CreatedFrom.UTC())))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, fmt.Sprintf(`"created_at" <= %s`, arg(filter.CreatedTo.UTC())))
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	students, err := repo.queryRows(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter, exec ...core.DBExecutor) (student.Student, error) {
	var query string
	var args []interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return student.Student{}, student.ErrNotFound
		}
		query = `SELECT * FROM "student" WHERE "id" = $1`
		args = append(args, filter.ID)
	case filter.Number != "":
		query = `SELECT * FROM "student" WHERE LOWER("number") = LOWER($1)`
		args = append(args, filter.Number)
	case filter.Email != "":
		query = `SELECT * FROM "student" WHERE "email" = $1`
		args = append(args, filter.Email)
	default:
		return student.Student{}, student.ErrNotFound
	}

	students, err := repo.queryRows(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	if len(students) == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return students[0], nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, stu student.Student, exec ...core.DBExecutor) (student.Student, error) {
	var r studentRow
	r.fromModel(stu)

	// number, course and school year are immutable once allocated
	query := `
		UPDATE "student"
		SET "first_name" = $2, "last_name" = $3, "email" = $4, "is_active" = $5, "updated_at" = $6
		WHERE "id" = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.FirstName, r.LastName, r.Email, r.IsActive, r.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return stu, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "student" WHERE "id" = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return int(cnt), nil
}
