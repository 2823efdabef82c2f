// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultTokenLifetime is the session lifetime granted at sign-in.
const DefaultTokenLifetime = time.Hour

// MinSigningKeyLen is the shortest accepted HMAC signing key, in bytes.
const MinSigningKeyLen = 32

// Claims are the identity claims carried by a session token.
type Claims struct {
	UserID string
	Email  string
}

// sessionClaims is the JWT body. Field names match the tokens issued by
// earlier deployments so existing clients keep decoding them.
type sessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies signed, time-bounded session tokens.
// It holds no per-token state, so a token cannot be revoked before expiry.
type TokenIssuer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithIssuer sets the iss claim written on issue and required on verify.
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		t.issuer = issuer
	}
}

// WithClock replaces the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		t.now = now
	}
}

// NewTokenIssuer creates a TokenIssuer signing with key (HS256).
func NewTokenIssuer(key []byte, opts ...TokenOption) (*TokenIssuer, error) {
	if len(key) < MinSigningKeyLen {
		return nil, oops.Code("TOKEN_KEY_INVALID").
			With("min_length", MinSigningKeyLen).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLen)
	}
	t := &TokenIssuer{
		key: append([]byte(nil), key...),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs claims into a token that expires lifetime after now.
// It returns the encoded token and its absolute expiry.
func (t *TokenIssuer) Issue(claims Claims, lifetime time.Duration) (string, time.Time, error) {
	if lifetime <= 0 {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").
			With("lifetime", lifetime.String()).
			Errorf("token lifetime must be positive")
	}

	// Token timestamps have one-second resolution; truncating first keeps
	// exp exactly lifetime after iat.
	issuedAt := t.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(lifetime)

	body := sessionClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token signature and expiry and returns its claims.
// Every failure is reported as ErrInvalidToken.
func (t *TokenIssuer) Verify(token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var body sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &body, func(*jwt.Token) (any, error) {
		return t.key, nil
	}, opts...)
	if err != nil {
		return Claims{}, oops.Code("TOKEN_INVALID").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if !parsed.Valid || body.UserID == "" {
		return Claims{}, oops.Code("TOKEN_INVALID").With("reason", "missing identity").Wrap(ErrInvalidToken)
	}

	return Claims{UserID: body.UserID, Email: body.Email}, nil
}
