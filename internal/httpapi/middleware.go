// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"

	"github.com/staffauth/staffauth/internal/auth"
)

// principalLocal is the fiber Locals key holding the auth.Principal.
const principalLocal = "principal"

// requireCapability authenticates the bearer token and checks capability
// against the policy. Rejected requests never reach the next handler.
func (s *Server) requireCapability(capability auth.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return oops.Code("AUTH_UNAUTHORIZED").
				With("reason", "missing bearer token").
				Wrap(auth.ErrUnauthorized)
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			return oops.Code("AUTH_UNAUTHORIZED").Wrap(errors.Join(auth.ErrUnauthorized, err))
		}

		principal := auth.PrincipalFromClaims(claims)
		if !s.policy.Allows(c.UserContext(), principal, capability) {
			return oops.Code("AUTH_FORBIDDEN").
				With("user_id", principal.UserID).
				With("capability", string(capability)).
				Wrap(auth.ErrForbidden)
		}

		c.Locals(principalLocal, principal)
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), principal))
		return c.Next()
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer x"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// observeRequests runs the error handler inline so the observed status is
// the one sent to the client.
func (s *Server) observeRequests(c *fiber.Ctx) error {
	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError) //nolint:errcheck // best effort after handler failure
		}
	}
	if s.observe != nil {
		route := c.Route()
		s.observe(route.Method+" "+route.Path, c.Response().StatusCode())
	}
	return nil
}
