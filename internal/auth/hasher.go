// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2SaltLen = 16 // salt length in bytes
	argon2KeyLen  = 32 // output length in bytes

	maxArgon2MemoryKiB  = 4 * 1024 * 1024
	maxArgon2Iterations = 64
)

// Argon2Params is the argon2id work factor.
type Argon2Params struct {
	Iterations  uint32
	MemoryKiB   uint32
	Parallelism uint8
}

// DefaultArgon2Params are the OWASP-recommended argon2id parameters.
var DefaultArgon2Params = Argon2Params{
	Iterations:  1,
	MemoryKiB:   64 * 1024,
	Parallelism: 4,
}

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the encoded hash.
	// Malformed hashes never match.
	Verify(password, encodedHash string) bool
}

// HasherOption configures an Argon2idHasher.
type HasherOption func(*Argon2idHasher)

// WithHashObserver registers a callback that receives the duration of every
// hash computation.
func WithHashObserver(fn func(time.Duration)) HasherOption {
	return func(h *Argon2idHasher) {
		h.observe = fn
	}
}

// Argon2idHasher implements PasswordHasher using argon2id. It also verifies
// bcrypt hashes written by earlier deployments of the service.
type Argon2idHasher struct {
	params  Argon2Params
	observe func(time.Duration)
}

// NewArgon2idHasher creates a hasher with the given work factor. Zero fields
// fall back to DefaultArgon2Params.
func NewArgon2idHasher(params Argon2Params, opts ...HasherOption) *Argon2idHasher {
	if params.Iterations == 0 {
		params.Iterations = DefaultArgon2Params.Iterations
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultArgon2Params.MemoryKiB
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultArgon2Params.Parallelism
	}
	h := &Argon2idHasher{params: params}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash produces an argon2id hash of the password in PHC string format.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("HASH_FAILED").With("step", "salt").Wrap(fmt.Errorf("%w: %w", ErrHashing, err))
	}

	start := time.Now()
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, argon2KeyLen)
	if h.observe != nil {
		h.observe(time.Since(start))
	}

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	if isBcryptHash(encodedHash) {
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
	}

	phc, err := parseArgon2id(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), phc.salt, phc.iterations, phc.memory, phc.parallelism, uint32(len(phc.key)))
	return subtle.ConstantTimeCompare(computed, phc.key) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

type argon2idHash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseArgon2id(encoded string) (*argon2idHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("HASH_MALFORMED").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("HASH_MALFORMED").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("HASH_MALFORMED").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("HASH_MALFORMED").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, oops.Code("HASH_MALFORMED").Wrap(err)
	}
	// Zero or oversized parameters would panic or truncate inside argon2.
	if memory == 0 || iterations == 0 || threads == 0 || threads > 255 {
		return nil, oops.Code("HASH_MALFORMED").Errorf("invalid argon2 parameters")
	}
	// A corrupt record must not make Verify allocate gigabytes or spin.
	if memory > maxArgon2MemoryKiB || iterations > maxArgon2Iterations {
		return nil, oops.Code("HASH_MALFORMED").Errorf("invalid argon2 parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("HASH_MALFORMED").Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("HASH_MALFORMED").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return nil, oops.Code("HASH_MALFORMED").Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2idHash{
		memory:      memory,
		iterations:  iterations,
		parallelism: uint8(threads),
		salt:        salt,
		key:         key,
	}, nil
}
