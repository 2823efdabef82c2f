// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package httpapi

import (
	"time"

	"github.com/staffauth/staffauth/internal/auth"
)

// userResponse is the wire form of a user. The password hash is never
// serialized.
type userResponse struct {
	ID             string    `json:"_id"`
	LastName       string    `json:"nom"`
	FirstName      string    `json:"prenom"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Disabled       bool      `json:"etat"`
	EmployeeNumber string    `json:"matricule"`
	ImageURL       string    `json:"imageUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:             u.ID.String(),
		LastName:       u.LastName,
		FirstName:      u.FirstName,
		Email:          u.Email,
		Role:           u.Role,
		Disabled:       u.Disabled,
		EmployeeNumber: u.EmployeeNumber,
		ImageURL:       u.ImageURL,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func toUserResponses(users []*auth.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type signInResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	UserID    string `json:"_id"`
}

type registerResponse struct {
	Message string       `json:"message"`
	Result  userResponse `json:"result"`
}

type msgResponse struct {
	Msg userResponse `json:"msg"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// updateUserRequest lists the fields a general update may change. Keys not
// listed here, password included, are dropped when the body is decoded.
type updateUserRequest struct {
	LastName       *string `json:"nom"`
	FirstName      *string `json:"prenom"`
	Email          *string `json:"email"`
	Role           *string `json:"role"`
	Disabled       *bool   `json:"etat"`
	EmployeeNumber *string `json:"matricule"`
	ImageURL       *string `json:"imageUrl"`
}

func (r updateUserRequest) toProfileUpdate() auth.ProfileUpdate {
	return auth.ProfileUpdate{
		LastName:       r.LastName,
		FirstName:      r.FirstName,
		Email:          r.Email,
		Role:           r.Role,
		Disabled:       r.Disabled,
		EmployeeNumber: r.EmployeeNumber,
		ImageURL:       r.ImageURL,
	}
}
