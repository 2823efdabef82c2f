// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import "errors"

// Sentinel errors. Services wrap these with oops codes so callers can
// match the failure class with errors.Is regardless of the wrapping.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrValidation is returned when a request payload is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrAccountNotFound is returned by sign-in when no account has the email.
	ErrAccountNotFound = errors.New("account does not exist")

	// ErrBadCredentials is returned by sign-in when the password is wrong.
	ErrBadCredentials = errors.New("password is incorrect")

	// ErrAccountDisabled is returned by sign-in when the account is blocked.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrUnauthorized is returned when a request carries no usable token.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrForbidden is returned when a principal lacks a capability.
	ErrForbidden = errors.New("operation not permitted")

	// ErrInvalidToken is returned for malformed, tampered, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrHashing is returned when a password could not be hashed.
	ErrHashing = errors.New("password hashing failed")

	// ErrStore is returned for user store faults.
	ErrStore = errors.New("user store failure")
)

// IsAuthenticationFailure reports whether err belongs to the class of
// failures that must be answered as unauthorized.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrBadCredentials) ||
		errors.Is(err, ErrAccountDisabled) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidToken)
}
