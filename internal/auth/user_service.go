// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// UserService runs the user record operations against a UserRepository.
// Password-bearing writes always pass through the PasswordHasher.
type UserService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users UserRepository, hasher PasswordHasher) (*UserService, error) {
	return NewUserServiceWithLogger(users, hasher, slog.New(slog.DiscardHandler))
}

// NewUserServiceWithLogger creates a UserService that logs record changes to logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*UserService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &UserService{users: users, hasher: hasher, logger: logger}, nil
}

// ParseUserID parses a user identifier. Malformed identifiers cannot name
// any user, so they are reported as not found.
func ParseUserID(raw string) (ulid.ULID, error) {
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_NOT_FOUND").With("id", raw).Wrap(ErrNotFound)
	}
	return id, nil
}

// Register validates input, hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:          NormalizeEmail(input.Email),
		PasswordHash:   hash,
		Role:           input.Role,
		Disabled:       input.Disabled,
		EmployeeNumber: input.EmployeeNumber,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		ImageURL:       input.ImageURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, wrapStoreErr("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "email", user.Email)
	return user, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]*User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, wrapStoreErr("list users", err)
	}
	return users, nil
}

// Get returns the user with the given ID.
func (s *UserService) Get(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr("get user", err)
	}
	return user, nil
}

// Profile returns the profile of the user with the given ID.
func (s *UserService) Profile(ctx context.Context, id ulid.ULID) (*User, error) {
	return s.Get(ctx, id)
}

// UpdateProfile merges the allow-listed fields of update into the user and
// returns the updated record.
func (s *UserService) UpdateProfile(ctx context.Context, id ulid.ULID, update ProfileUpdate) (*User, error) {
	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if err := validateInput(emailInput{Email: email}); err != nil {
			return nil, err
		}
		update.Email = &email
	}
	if update.IsEmpty() {
		return s.Get(ctx, id)
	}

	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		return nil, wrapStoreErr("update user", err)
	}

	s.logger.InfoContext(ctx, "user updated", "user_id", id.String())
	return user, nil
}

// ChangePassword hashes the new password and replaces the stored hash.
func (s *UserService) ChangePassword(ctx context.Context, id ulid.ULID, input PasswordInput) (*User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdatePassword(ctx, id, hash)
	if err != nil {
		return nil, wrapStoreErr("update password", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", id.String())
	return user, nil
}

// Delete removes the user and returns the removed record.
func (s *UserService) Delete(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.Delete(ctx, id)
	if err != nil {
		return nil, wrapStoreErr("delete user", err)
	}

	s.logger.InfoContext(ctx, "user deleted", "user_id", id.String())
	return user, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if !errors.Is(err, ErrHashing) {
			err = errors.Join(ErrHashing, err)
		}
		return "", oops.Code("HASH_FAILED").Wrap(err)
	}
	return hash, nil
}

type emailInput struct {
	Email string `json:"email"`
}

func (r emailInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func wrapStoreErr(operation string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return oops.Code("USER_NOT_FOUND").With("operation", operation).Wrap(err)
	case errors.Is(err, ErrDuplicateEmail):
		return oops.Code("USER_EMAIL_TAKEN").With("operation", operation).Wrap(err)
	default:
		return oops.Code("STORE_FAILED").With("operation", operation).Wrap(errors.Join(ErrStore, err))
	}
}
