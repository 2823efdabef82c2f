// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/staffauth/staffauth/internal/config"
	"github.com/staffauth/staffauth/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the staffauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staffauth",
		Short: "StaffAuth - staff identity and sign-in service",
		Long: `StaffAuth stores staff user records, signs users in with a password
and issues session tokens that protect the user management API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/staffauth/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig resolves configuration for cmd from the config file,
// environment and the flags cmd was invoked with, then applies validate.
func loadConfig(cmd *cobra.Command, validate func(*config.Config) error) (*config.Config, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
