package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/repository"
)

const userColumns = `id, email, password_hash, push_token, last_login, created_at`

type UserRepo struct {
	PostgresBaseRepo
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, push_token, last_login, created_at)
		VALUES (:id, :email, :password_hash, :push_token, :last_login, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, r.q, query, user); err != nil {
		if pqCode(err) == pqUniqueViolation {
			return errors.NewConflictError("user already exists", repository.ErrDuplicate)
		}
		return errors.NewDatabaseError("failed to create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := sqlx.GetContext(ctx, r.q, user, query, id); err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`

	if err := sqlx.GetContext(ctx, r.q, user, query, email); err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	if err := sqlx.SelectContext(ctx, r.q, &users, query); err != nil {
		return nil, errors.NewDatabaseError("failed to list users", err)
	}
	return users, nil
}

func (r *UserRepo) UpdateLogin(ctx context.Context, id, pushToken string, at time.Time) error {
	query := `UPDATE users SET push_token = $2, last_login = $3 WHERE id = $1`

	rows, err := r.exec(ctx, "update login", query, id, pushToken, at)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NewNotFoundError("user not found", repository.ErrNotFound)
	}
	return nil
}
