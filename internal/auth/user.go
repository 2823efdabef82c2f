// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is a staff account.
type User struct {
	ID             ulid.ULID
	Email          string
	PasswordHash   string
	Role           string
	Disabled       bool
	EmployeeNumber string
	FirstName      string
	LastName       string
	ImageURL       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileUpdate lists the fields a general update may change. Nil fields
// are left untouched. Credentials are not part of it; use ChangePassword.
type ProfileUpdate struct {
	Email          *string
	Role           *string
	Disabled       *bool
	EmployeeNumber *string
	FirstName      *string
	LastName       *string
	ImageURL       *string
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Email == nil && u.Role == nil && u.Disabled == nil &&
		u.EmployeeNumber == nil && u.FirstName == nil && u.LastName == nil &&
		u.ImageURL == nil
}

// Apply merges the set fields into user.
func (u ProfileUpdate) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.Disabled != nil {
		user.Disabled = *u.Disabled
	}
	if u.EmployeeNumber != nil {
		user.EmployeeNumber = *u.EmployeeNumber
	}
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.ImageURL != nil {
		user.ImageURL = *u.ImageURL
	}
}

// NormalizeEmail returns the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository persists users.
type UserRepository interface {
	// Create stores a new user. The store assigns ID, CreatedAt and
	// UpdatedAt on the passed value.
	// Returns ErrDuplicateEmail if the email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*User, error)

	// UpdateProfile merges update into the stored user and returns the result.
	UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) (*User, error)

	// UpdatePassword replaces the password hash and returns the result.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) (*User, error)

	// Delete removes a user and returns the removed record.
	Delete(ctx context.Context, id ulid.ULID) (*User, error)
}
