// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffauth/staffauth/internal/auth"
)

const registrationSucceeded = "registration succeeded"

func (s *Server) handleSignIn(c *fiber.Ctx) error {
	var in auth.SignInInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}

	res, err := s.signIn.SignIn(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(signInResponse{
		Token:     res.Token,
		ExpiresIn: res.ExpiresIn,
		UserID:    res.UserID.String(),
	})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var in auth.RegisterInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}

	user, err := s.users.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(registerResponse{
		Message: registrationSucceeded,
		Result:  toUserResponse(user),
	})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	users, err := s.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(toUserResponses(users))
}

func (s *Server) handleRead(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := s.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(user))
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := s.users.Profile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(msgResponse{Msg: toUserResponse(user)})
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var in updateUserRequest
	if err := decodeBody(c, &in); err != nil {
		return err
	}

	user, err := s.users.UpdateProfile(c.UserContext(), id, in.toProfileUpdate())
	if err != nil {
		return err
	}
	return c.JSON(msgResponse{Msg: toUserResponse(user)})
}

func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var in auth.PasswordInput
	if err := decodeBody(c, &in); err != nil {
		return err
	}

	user, err := s.users.ChangePassword(c.UserContext(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(user))
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := s.users.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(msgResponse{Msg: toUserResponse(user)})
}

func userID(c *fiber.Ctx) (ulid.ULID, error) {
	return auth.ParseUserID(c.Params("id"))
}

// decodeBody parses a JSON body into v. Unknown keys are ignored.
func decodeBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return oops.Code("REQUEST_MALFORMED").
			With("content_type", c.Get(fiber.HeaderContentType)).
			Wrap(&auth.ValidationError{Fields: map[string]string{"body": "must be a JSON object"}})
	}
	return nil
}
