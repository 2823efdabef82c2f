// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

//go:build integration

package postgres_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/internal/auth/postgres"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	newUser := func(email string) *auth.User {
		return &auth.User{
			Email:          email,
			PasswordHash:   "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
			Role:           "admin",
			EmployeeNumber: "E-1",
			FirstName:      "Ada",
			LastName:       "Lovelace",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewUserRepository(testPool)
		_, err := testPool.Exec(ctx, `DELETE FROM users`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates and reads back a user", func() {
		user := newUser("a@x.com")
		Expect(repo.Create(ctx, user)).To(Succeed())
		Expect(user.ID).NotTo(Equal(ulid.ULID{}))

		byID, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Email).To(Equal("a@x.com"))
		Expect(byID.CreatedAt).To(BeTemporally("==", user.CreatedAt))

		byEmail, err := repo.GetByEmail(ctx, "A@X.COM")
		Expect(err).NotTo(HaveOccurred())
		Expect(byEmail.ID).To(Equal(user.ID))
	})

	It("enforces case-insensitive email uniqueness", func() {
		Expect(repo.Create(ctx, newUser("dup@x.com"))).To(Succeed())

		err := repo.Create(ctx, newUser("DUP@x.com"))
		Expect(err).To(MatchError(auth.ErrDuplicateEmail))

		users, err := repo.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
	})

	It("merges profile updates and keeps the password hash", func() {
		user := newUser("a@x.com")
		Expect(repo.Create(ctx, user)).To(Succeed())

		disabled := true
		updated, err := repo.UpdateProfile(ctx, user.ID, auth.ProfileUpdate{Disabled: &disabled})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Disabled).To(BeTrue())
		Expect(updated.FirstName).To(Equal("Ada"))
		Expect(updated.PasswordHash).To(Equal(user.PasswordHash))
	})

	It("rejects a profile email that belongs to another user", func() {
		a, b := newUser("a@x.com"), newUser("b@x.com")
		Expect(repo.Create(ctx, a)).To(Succeed())
		Expect(repo.Create(ctx, b)).To(Succeed())

		email := "a@x.com"
		_, err := repo.UpdateProfile(ctx, b.ID, auth.ProfileUpdate{Email: &email})
		Expect(err).To(MatchError(auth.ErrDuplicateEmail))
	})

	It("replaces the password hash", func() {
		user := newUser("a@x.com")
		Expect(repo.Create(ctx, user)).To(Succeed())

		updated, err := repo.UpdatePassword(ctx, user.ID, "$argon2id$new")
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.PasswordHash).To(Equal("$argon2id$new"))
	})

	It("deletes and returns the removed row", func() {
		user := newUser("a@x.com")
		Expect(repo.Create(ctx, user)).To(Succeed())

		removed, err := repo.Delete(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed.ID).To(Equal(user.ID))

		_, err = repo.GetByID(ctx, user.ID)
		Expect(err).To(MatchError(auth.ErrNotFound))

		_, err = repo.Delete(ctx, user.ID)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})
