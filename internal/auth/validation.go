// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// Password length bounds enforced on registration and password change.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 16
)

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	LastName       string `json:"nom"`
	FirstName      string `json:"prenom"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Disabled       bool   `json:"etat"`
	EmployeeNumber string `json:"matricule"`
	ImageURL       string `json:"imageUrl"`
}

// Validate checks the required registration fields.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.Email, validation.Required.Error("email is required"), is.Email),
		validation.Field(&r.Password, passwordRules...),
	)
}

// SignInInput is the payload accepted by SignIn.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (r SignInInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// PasswordInput is the payload accepted by ChangePassword.
type PasswordInput struct {
	Password string `json:"password"`
}

// Validate applies the password length rule.
func (r PasswordInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, passwordRules...),
	)
}

var passwordRules = []validation.Rule{
	validation.Required.Error("password should be between 8 to 16 characters long"),
	validation.RuneLength(MinPasswordLength, MaxPasswordLength).Error("password should be between 8 to 16 characters long"),
}

// ValidationError carries field-level violations. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// Error implements error.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// validateInput runs v.Validate and converts violations to a coded
// ValidationError. A nil return means the input is acceptable.
func validateInput(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for name, ferr := range verrs {
			fields[name] = ferr.Error()
		}
	} else {
		fields["_"] = err.Error()
	}

	return oops.Code("USER_VALIDATION_FAILED").
		With("fields", fields).
		Wrap(&ValidationError{Fields: fields})
}

// ValidationFields extracts field violations from err, if any.
func ValidationFields(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
