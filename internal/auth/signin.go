// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Sign-in outcomes, reported to SignInObserver.
const (
	OutcomeSuccess         = "success"
	OutcomeAccountNotFound = "account_not_found"
	OutcomeBadCredentials  = "bad_credentials"
	OutcomeAccountDisabled = "account_disabled"
	OutcomeError           = "error"
)

// dummyPasswordHash is verified when no account matches the email so that
// a missing account costs the same as a wrong password.
//
//nolint:gosec // G101: intentionally fake hash, never matches.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SignInResult is returned by a successful sign-in.
type SignInResult struct {
	Token     string
	ExpiresIn int
	ExpiresAt time.Time
	UserID    ulid.ULID
}

// SignInObserver receives the outcome of every sign-in attempt.
type SignInObserver func(outcome string)

// SignInService is the account gate: it turns credentials into a session
// token after checking, in order, that the account exists, that the
// password matches, and that the account is enabled.
type SignInService struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   *TokenIssuer
	lifetime time.Duration
	logger   *slog.Logger
	observe  SignInObserver
}

// NewSignInService creates a SignInService. A zero lifetime selects
// DefaultTokenLifetime.
func NewSignInService(users UserRepository, hasher PasswordHasher, tokens *TokenIssuer, lifetime time.Duration) (*SignInService, error) {
	return NewSignInServiceWithLogger(users, hasher, tokens, lifetime, slog.New(slog.DiscardHandler))
}

// NewSignInServiceWithLogger creates a SignInService that logs attempts to logger.
func NewSignInServiceWithLogger(users UserRepository, hasher PasswordHasher, tokens *TokenIssuer, lifetime time.Duration, logger *slog.Logger) (*SignInService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &SignInService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		lifetime: lifetime,
		logger:   logger,
	}, nil
}

// SetObserver registers fn to receive sign-in outcomes.
func (s *SignInService) SetObserver(fn SignInObserver) {
	s.observe = fn
}

// SignIn authenticates email and password and issues a session token.
func (s *SignInService) SignIn(ctx context.Context, input SignInInput) (*SignInResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(input.Password, dummyPasswordHash)
			s.record(ctx, OutcomeAccountNotFound, input.Email)
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").Wrap(ErrAccountNotFound)
		}
		s.record(ctx, OutcomeError, input.Email)
		return nil, oops.Code("STORE_FAILED").
			With("operation", "get user by email").
			Wrap(errors.Join(ErrStore, err))
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		s.record(ctx, OutcomeBadCredentials, input.Email)
		return nil, oops.Code("AUTH_BAD_CREDENTIALS").
			With("user_id", user.ID.String()).
			Wrap(ErrBadCredentials)
	}

	// Only checked once the password is confirmed, so the disabled state
	// is never revealed to a caller who does not know the password.
	if user.Disabled {
		s.record(ctx, OutcomeAccountDisabled, input.Email)
		return nil, oops.Code("AUTH_ACCOUNT_DISABLED").
			With("user_id", user.ID.String()).
			Wrap(ErrAccountDisabled)
	}

	token, expiresAt, err := s.tokens.Issue(Claims{UserID: user.ID.String(), Email: user.Email}, s.lifetime)
	if err != nil {
		s.record(ctx, OutcomeError, input.Email)
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.record(ctx, OutcomeSuccess, input.Email)
	return &SignInResult{
		Token:     token,
		ExpiresIn: int(s.lifetime / time.Second),
		ExpiresAt: expiresAt,
		UserID:    user.ID,
	}, nil
}

func (s *SignInService) record(ctx context.Context, outcome, email string) {
	if s.observe != nil {
		s.observe(outcome)
	}
	level := slog.LevelInfo
	if outcome != OutcomeSuccess {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "sign-in attempt", "outcome", outcome, "email", email)
}
