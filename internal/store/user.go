package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hagzilla/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, password_hash, budget, role, disabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Budget,
		&user.Role,
		&user.Disabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByUsername returns ErrNotFound for an unknown username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	return r.list(ctx, query)
}

// ListOverBudget returns users whose remaining budget is negative.
func (r *UserRepository) ListOverBudget(ctx context.Context) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE budget < 0 ORDER BY id`
	return r.list(ctx, query)
}

func (r *UserRepository) list(ctx context.Context, query string, args ...any) ([]types.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, password_hash, budget, role, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.PasswordHash,
		user.Budget,
		user.Role,
		user.Disabled,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

// Update rewrites username and budget. Role, password and disabled state
// have their own setters.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		UPDATE users
		SET username = $1,
			budget = $2,
			updated_at = $3
		WHERE id = $4
		RETURNING ` + userColumns
	return r.updateOne(ctx, query, user.Username, user.Budget, time.Now(), user.ID)
}

func (r *UserRepository) UpdateBudget(ctx context.Context, id int, budget float64) (types.User, error) {
	const query = `
		UPDATE users SET budget = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return r.updateOne(ctx, query, budget, time.Now(), id)
}

func (r *UserRepository) SetRole(ctx context.Context, id int, role string) (types.User, error) {
	const query = `
		UPDATE users SET role = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return r.updateOne(ctx, query, role, time.Now(), id)
}

func (r *UserRepository) SetDisabled(ctx context.Context, id int, disabled bool) (types.User, error) {
	const query = `
		UPDATE users SET disabled = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	return r.updateOne(ctx, query, disabled, time.Now(), id)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) updateOne(ctx context.Context, query string, args ...any) (types.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
