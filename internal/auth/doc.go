// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

// Package auth provides staff identity and authentication.
//
// # Components
//
//   - PasswordHasher - argon2id hashing with bcrypt verification for legacy records
//   - TokenIssuer - signed, expiring session tokens
//   - SignInService - the account gate that exchanges credentials for a token
//   - UserService - register, read, update, re-password and delete user records
//
// Protected operations name a Capability; transports check it against a
// CapabilityPolicy before any service method runs.
//
// # Errors
//
// Every failure matches one of the sentinels in errors.go through
// errors.Is. Transports map sentinels to status codes; the oops code and
// context on the error are for logs.
//
// Services are created with New*Service constructors that validate
// dependencies. UserRepository implementations live in the memory and
// postgres subpackages.
package auth
