// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/internal/config"
)

const defaultUserTimeout = 30 * time.Second

// userCreateConfig holds the flags of "user create".
type userCreateConfig struct {
	email          string
	password       string
	lastName       string
	firstName      string
	role           string
	employeeNumber string
	timeout        time.Duration
}

// repositoryFactory is replaced in tests.
var repositoryFactory RepositoryFactory = openRepository

// NewUserCmd creates the user command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user records directly in the store",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	cfg := &userCreateConfig{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user without going through the API",
		Long: `Create a user directly in the configured store. Registration through
the API requires a signed-in user, so this is how the first account is made.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserCreate(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password, 8 to 16 characters (required)")
	cmd.Flags().StringVar(&cfg.lastName, "nom", "", "last name (required)")
	cmd.Flags().StringVar(&cfg.firstName, "prenom", "", "first name (required)")
	cmd.Flags().StringVar(&cfg.role, "role", "", "role label")
	cmd.Flags().StringVar(&cfg.employeeNumber, "matricule", "", "employee number")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultUserTimeout, "timeout for store operations")

	return cmd
}

func runUserCreate(cmd *cobra.Command, ucfg *userCreateConfig) error {
	cfg, err := loadConfig(cmd, (*config.Config).ValidateStore)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ucfg.timeout)
	defer cancel()

	logger := slog.Default()
	repo, closeRepo, err := repositoryFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open user store").Wrap(err)
	}
	defer closeRepo()

	users, err := auth.NewUserServiceWithLogger(repo, auth.NewArgon2idHasher(cfg.Hash.Params()), logger)
	if err != nil {
		return err
	}

	user, err := users.Register(ctx, auth.RegisterInput{
		LastName:       ucfg.lastName,
		FirstName:      ucfg.firstName,
		Email:          ucfg.email,
		Password:       ucfg.password,
		Role:           ucfg.role,
		EmployeeNumber: ucfg.employeeNumber,
	})
	if err != nil {
		if fields := auth.ValidationFields(err); len(fields) > 0 {
			for field, reason := range fields {
				cmd.PrintErrf("  %s: %s\n", field, reason)
			}
		}
		return err
	}

	cmd.Printf("Created user %s (%s)\n", user.ID, user.Email)
	return nil
}
