// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffauth/staffauth/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

const userColumns = `id, email, password_hash, role, disabled, employee_number,
		       first_name, last_name, image_url, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Create stores a new user and assigns its ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	id := ulid.Make()
	now := r.now()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, role, disabled, employee_number,
			first_name, last_name, image_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		id.String(),
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Disabled,
		user.EmployeeNumber,
		user.FirstName,
		user.LastName,
		user.ImageURL,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return storeFailed("insert user", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("id", id.String())
	}
	if err != nil {
		return nil, storeFailed("get user by id", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("email", email)
	}
	if err != nil {
		return nil, storeFailed("get user by email", err)
	}
	return user, nil
}

// List returns all users ordered by creation.
func (r *UserRepository) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, storeFailed("list users", err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, storeFailed("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailed("iterate users", err)
	}
	return users, nil
}

// UpdateProfile merges the set fields of update in a single statement.
func (r *UserRepository) UpdateProfile(ctx context.Context, id ulid.ULID, update auth.ProfileUpdate) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			role = COALESCE($3, role),
			disabled = COALESCE($4, disabled),
			employee_number = COALESCE($5, employee_number),
			first_name = COALESCE($6, first_name),
			last_name = COALESCE($7, last_name),
			image_url = COALESCE($8, image_url),
			updated_at = $9
		WHERE id = $1
		RETURNING `+userColumns,
		id.String(),
		update.Email,
		update.Role,
		update.Disabled,
		update.EmployeeNumber,
		update.FirstName,
		update.LastName,
		update.ImageURL,
		r.now(),
	)

	user, err := scanUser(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, notFound("id", id.String())
	case isUniqueViolation(err):
		return nil, oops.Code("USER_EMAIL_TAKEN").
			With("id", id.String()).
			Wrap(auth.ErrDuplicateEmail)
	case err != nil:
		return nil, storeFailed("update user", err)
	}
	return user, nil
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+userColumns,
		id.String(), passwordHash, r.now())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("id", id.String())
	}
	if err != nil {
		return nil, storeFailed("update password", err)
	}
	return user, nil
}

// Delete removes a user and returns the removed row.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("id", id.String())
	}
	if err != nil {
		return nil, storeFailed("delete user", err)
	}
	return user, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Disabled,
		&user.EmployeeNumber,
		&user.FirstName,
		&user.LastName,
		&user.ImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("id", idStr).Wrapf(err, "parse user id")
	}
	user.ID = id
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func notFound(key, value string) error {
	return oops.Code("USER_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
}

func storeFailed(operation string, err error) error {
	return oops.Code("STORE_FAILED").With("operation", operation).Wrap(errors.Join(auth.ErrStore, err))
}
