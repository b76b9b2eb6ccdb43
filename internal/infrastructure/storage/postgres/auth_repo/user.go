// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/auth"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const userColumns = `id, email, password_hash, full_name,
	   is_active, is_admin, last_login_at,
	   failed_login_attempts, locked_until,
	   created_at, updated_at, deleted_at, version`

// Compile-time check that UserRepo implements auth.UserRepository.
var _ auth.UserRepository = (*UserRepo)(nil)

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsActive, &user.IsAdmin, &user.LastLoginAt,
		&user.FailedLoginAttempts, &user.LockedUntil,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt, &user.Version,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO users (
			id, email, password_hash, full_name,
			is_active, is_admin, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName,
		user.IsActive, user.IsAdmin, user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`

	user, err := scanUser(q.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// Update updates user data with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3,
		    is_active = $4, is_admin = $5, last_login_at = $6,
		    failed_login_attempts = $7, locked_until = $8,
		    updated_at = NOW(), version = version + 1
		WHERE id = $9 AND version = $10 AND deleted_at IS NULL
	`

	result, err := q.Exec(ctx, query,
		user.Email, user.PasswordHash, user.FullName,
		user.IsActive, user.IsAdmin, user.LastLoginAt,
		user.FailedLoginAttempts, user.LockedUntil,
		user.ID, user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", user.ID.String())
	}

	user.Version++
	return nil
}

// Delete soft-deletes a user.
func (r *UserRepo) Delete(ctx context.Context, userID id.ID) error {
	q := r.txManager.GetQuerier(ctx)

	result, err := q.Exec(ctx,
		`UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}

	return nil
}

// List retrieves users with filtering.
func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	q := r.txManager.GetQuerier(ctx)

	where := "deleted_at IS NULL"
	args := []any{}
	argNo := 1

	if filter.Search != "" {
		where += fmt.Sprintf(" AND (email ILIKE $%d OR full_name ILIKE $%d)", argNo, argNo)
		args = append(args, "%"+filter.Search+"%")
		argNo++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argNo)
		args = append(args, *filter.IsActive)
		argNo++
	}
	if filter.Role != "" {
		where += fmt.Sprintf(" AND id IN (SELECT user_id FROM user_roles WHERE role = $%d)", argNo)
		args = append(args, filter.Role)
		argNo++
	}

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY email`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNo)
		args = append(args, filter.Limit)
		argNo++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNo)
		args = append(args, filter.Offset)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, total, rows.Err()
}

// LoadRoles loads user's role codes.
func (r *UserRepo) LoadRoles(ctx context.Context, userID id.ID) ([]string, error) {
	return r.loadStrings(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
}

// LoadBrands loads the brand IDs a user may operate on.
func (r *UserRepo) LoadBrands(ctx context.Context, userID id.ID) ([]string, error) {
	return r.loadStrings(ctx,
		`SELECT brand_id FROM user_brands WHERE user_id = $1 ORDER BY brand_id`, userID)
}

func (r *UserRepo) loadStrings(ctx context.Context, query string, userID id.ID) ([]string, error) {
	q := r.txManager.GetQuerier(ctx)

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// SetRoles replaces user's roles.
func (r *UserRepo) SetRoles(ctx context.Context, userID id.ID, roles []string) error {
	return r.replaceStrings(ctx, "user_roles", "role", userID, roles)
}

// SetBrands replaces user's brand access.
func (r *UserRepo) SetBrands(ctx context.Context, userID id.ID, brandIDs []string) error {
	return r.replaceStrings(ctx, "user_brands", "brand_id", userID, brandIDs)
}

func (r *UserRepo) replaceStrings(ctx context.Context, table, column string, userID id.ID, values []string) error {
	q := r.txManager.GetQuerier(ctx)

	if _, err := q.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("delete existing %s: %w", table, err)
	}

	for _, v := range values {
		if _, err := q.Exec(ctx,
			"INSERT INTO "+table+" (user_id, "+column+") VALUES ($1, $2)", userID, v); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}

	return nil
}

// Exists checks if email exists.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`,
		email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	return exists, nil
}
