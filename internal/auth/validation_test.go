// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffauth/staffauth/internal/auth"
)

func TestPasswordInput_LengthBounds(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"empty", 0, true},
		{"one below minimum", auth.MinPasswordLength - 1, true},
		{"minimum", auth.MinPasswordLength, false},
		{"maximum", auth.MaxPasswordLength, false},
		{"one above maximum", auth.MaxPasswordLength + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.PasswordInput{Password: strings.Repeat("p", tt.length)}.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPasswordInput_CountsCharacters(t *testing.T) {
	// Nine two-byte characters are eighteen bytes but a valid length.
	assert.NoError(t, auth.PasswordInput{Password: strings.Repeat("é", 9)}.Validate())
	assert.NoError(t, auth.PasswordInput{Password: strings.Repeat("é", auth.MaxPasswordLength)}.Validate())
	assert.Error(t, auth.PasswordInput{Password: strings.Repeat("é", auth.MinPasswordLength-1)}.Validate())
	assert.Error(t, auth.PasswordInput{Password: strings.Repeat("é", auth.MaxPasswordLength+1)}.Validate())
}

func TestRegisterInput_Validate(t *testing.T) {
	assert.NoError(t, validRegistration().Validate())

	err := auth.RegisterInput{}.Validate()
	require.Error(t, err)
	for _, field := range []string{"nom", "prenom", "email", "password"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidationError_Message(t *testing.T) {
	verr := &auth.ValidationError{Fields: map[string]string{
		"password": "too short",
		"email":    "is required",
	}}
	assert.Equal(t, "validation failed: email: is required; password: too short", verr.Error())
	assert.ErrorIs(t, verr, auth.ErrValidation)
}

func TestValidationFields_NonValidationError(t *testing.T) {
	assert.Nil(t, auth.ValidationFields(auth.ErrNotFound))
}
