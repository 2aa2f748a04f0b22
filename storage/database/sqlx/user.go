package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         null.String    `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     null.Bool      `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r *userRow) fromModel(usr user.User) {
	r.ID = usr.ID
	r.Name = null.NewString(usr.Name, usr.Name != "")
	r.Username = null.NewString(usr.Username, usr.Username != "")
	r.Email = null.NewString(usr.Email, usr.Email != "")
	r.IsActive = null.BoolFromPtr(usr.IsActive)
	r.Roles = usr.Roles
	r.PasswordHash = null.BytesFrom(usr.PasswordHash)
	r.CreatedAt = null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero())
	r.UpdatedAt = null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero())
	r.LastLogin = null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero())
}

func (r *userRow) toModel() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name.String,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive.Ptr(),
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo userRepository) queryRows(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) ([]user.User, error) {
	rows, err := exe.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var userRows []userRow
	if err = sqlx.StructScan(rows, &userRows); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(userRows))
	for _, r := range userRows {
		users = append(users, r.toModel())
	}
	return users, nil
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	query := `
		SELECT COUNT(*) FILTER (WHERE "username" = $1), COUNT(*) FILTER (WHERE "email" = $2)
		FROM "account" WHERE ("username" = $1 OR "email" = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		query += ` AND "id" != ALL($3)`
		args = append(args, pq.StringArray(ids))
	}

	var unameCnt, emailCnt int
	if err := repo.getExec(exec).QueryRowContext(ctx, query, args...).Scan(&unameCnt, &emailCnt); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if unameCnt > 0 {
		return user.ErrUsernameExists
	}
	if emailCnt > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	var r userRow
	r.fromModel(usr)

	query := `
		INSERT INTO "account" ("id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	query := `SELECT * FROM "account"`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf(`("name" ILIKE %[1]s OR "username" ILIKE %[1]s OR "email" ILIKE %[1]s)`, val))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleConds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleConds = append(roleConds, fmt.Sprintf(
					`"id" IN (SELECT "id" FROM "account", UNNEST("roles") user_role WHERE user_role ILIKE %s)`,
					arg(role+"%")))
			}
			conds = append(conds, "("+strings.Join(roleConds, " OR ")+")")
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

	users, err := repo.queryRows(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var query string
	var args []interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		query = `SELECT * FROM "account" WHERE "id" = $1`
		args = append(args, filter.ID)
	case filter.Username != "":
		query = `SELECT * FROM "account" WHERE "username" = $1`
		args = append(args, filter.Username)
	case filter.Email != "":
		query = `SELECT * FROM "account" WHERE "email" = $1`
		args = append(args, filter.Email)
	case filter.UsernameOrEmail != nil:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		query = `SELECT * FROM "account" WHERE "username" = $1 OR "email" = $2`
		args = append(args, uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	users, err := repo.queryRows(ctx, repo.getExec(exec), query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.UpdatedAt = usr.UpdatedAt.UTC()
	var r userRow
	r.fromModel(usr)
	if !r.UpdatedAt.Valid {
		r.UpdatedAt = null.TimeFrom(time.Now().UTC())
	}

	query := `
		UPDATE "account"
		SET "name" = $2, "username" = $3, "email" = $4, "is_active" = $5, "roles" = $6,
		    "password_hash" = $7, "updated_at" = $8, "last_login" = $9
		WHERE "id" = $1`
	res, err := repo.getExec(exec).ExecContext(ctx, query,
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.UpdatedAt, r.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	usr.UpdatedAt = r.UpdatedAt.Time
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "account" WHERE "id" = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
