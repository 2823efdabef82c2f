// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import "context"

// Capability names a permission a protected operation requires.
type Capability string

// Capabilities required by the user record operations.
const (
	CapRegisterUser   Capability = "users:register"
	CapListUsers      Capability = "users:list"
	CapReadUser       Capability = "users:read"
	CapReadProfile    Capability = "users:read-profile"
	CapUpdateUser     Capability = "users:update"
	CapChangePassword Capability = "users:change-password"
	CapDeleteUser     Capability = "users:delete"
)

// Principal is the identity established by a verified session token.
type Principal struct {
	UserID string
	Email  string
}

// PrincipalFromClaims builds the principal carried by verified claims.
func PrincipalFromClaims(c Claims) Principal {
	return Principal{UserID: c.UserID, Email: c.Email}
}

// CapabilityPolicy decides whether a principal may use a capability.
type CapabilityPolicy interface {
	Allows(ctx context.Context, p Principal, c Capability) bool
}

// AuthenticatedPolicy grants every capability to any verified principal.
type AuthenticatedPolicy struct{}

// Allows implements CapabilityPolicy.
func (AuthenticatedPolicy) Allows(_ context.Context, p Principal, _ Capability) bool {
	return p.UserID != ""
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
