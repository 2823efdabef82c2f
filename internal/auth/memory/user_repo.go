// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

// Package memory provides an in-process user store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffauth/staffauth/internal/auth"
)

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository keeps users in a map guarded by a RWMutex. Returned users
// are copies; callers never share state with the store.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
	now     func() time.Time
}

// NewUserRepository creates an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
		now:     time.Now,
	}
}

// Create stores a new user and assigns its ID and timestamps.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := auth.NormalizeEmail(user.Email)
	if _, taken := r.byEmail[key]; taken {
		return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrDuplicateEmail)
	}

	now := r.now()
	user.ID = ulid.Make()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[key] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	out := *user
	return &out, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	out := *r.byID[id]
	return &out, nil
}

// List returns all users ordered by creation.
func (r *UserRepository) List(_ context.Context) ([]*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*auth.User, 0, len(r.byID))
	for _, u := range r.byID {
		out := *u
		users = append(users, &out)
	}
	// ULIDs sort by creation time.
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID.Compare(users[j].ID) < 0
	})
	return users, nil
}

// UpdateProfile merges update into the stored user.
func (r *UserRepository) UpdateProfile(_ context.Context, id ulid.ULID, update auth.ProfileUpdate) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, notFound(id)
	}

	oldKey := auth.NormalizeEmail(user.Email)
	if update.Email != nil {
		newKey := auth.NormalizeEmail(*update.Email)
		if owner, taken := r.byEmail[newKey]; taken && owner != id {
			return nil, oops.Code("USER_EMAIL_TAKEN").With("email", *update.Email).Wrap(auth.ErrDuplicateEmail)
		}
		delete(r.byEmail, oldKey)
		r.byEmail[newKey] = id
	}

	update.Apply(user)
	user.UpdatedAt = r.now()

	out := *user
	return &out, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = r.now()

	out := *user
	return &out, nil
}

// Delete removes a user and returns the removed record.
func (r *UserRepository) Delete(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	delete(r.byID, id)
	delete(r.byEmail, auth.NormalizeEmail(user.Email))
	return user, nil
}

func notFound(id ulid.ULID) error {
	return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
}
