// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/pkg/errutil"
)

// genericFailure is the only message a caller sees for infrastructure faults.
const genericFailure = "internal server error"

// rejection maps err to a status code and the reason shown to the caller.
// Authentication failures other than the three sign-in reasons collapse to
// ErrUnauthorized's message.
func rejection(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return fiber.StatusBadRequest, errorResponse{
			Message: auth.ErrValidation.Error(),
			Errors:  auth.ValidationFields(err),
		}
	case errors.Is(err, auth.ErrDuplicateEmail):
		return fiber.StatusConflict, errorResponse{Message: auth.ErrDuplicateEmail.Error()}
	case errors.Is(err, auth.ErrNotFound):
		return fiber.StatusNotFound, errorResponse{Message: "user not found"}
	case errors.Is(err, auth.ErrAccountNotFound):
		return fiber.StatusUnauthorized, errorResponse{Message: auth.ErrAccountNotFound.Error()}
	case errors.Is(err, auth.ErrBadCredentials):
		return fiber.StatusUnauthorized, errorResponse{Message: auth.ErrBadCredentials.Error()}
	case errors.Is(err, auth.ErrAccountDisabled):
		return fiber.StatusUnauthorized, errorResponse{Message: auth.ErrAccountDisabled.Error()}
	case auth.IsAuthenticationFailure(err):
		return fiber.StatusUnauthorized, errorResponse{Message: auth.ErrUnauthorized.Error()}
	case errors.Is(err, auth.ErrForbidden):
		return fiber.StatusForbidden, errorResponse{Message: auth.ErrForbidden.Error()}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return fe.Code, errorResponse{Message: fe.Message}
	}
	return fiber.StatusInternalServerError, errorResponse{Message: genericFailure}
}

// handleError is the fiber ErrorHandler. Server faults are logged with their
// oops code and context; the response carries only a generic message.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, body := rejection(err)
	if status >= fiber.StatusInternalServerError {
		errutil.LogErrorContext(c.UserContext(), s.logger, "request failed", err)
	} else {
		s.logger.DebugContext(c.UserContext(), "request rejected",
			"status", status,
			"code", errutil.Code(err),
			"path", c.Path(),
		)
	}
	return c.Status(status).JSON(body)
}
