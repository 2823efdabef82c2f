// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/internal/config"
	"github.com/staffauth/staffauth/internal/httpapi"
	"github.com/staffauth/staffauth/internal/logging"
	"github.com/staffauth/staffauth/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// ObservabilityServer is the part of observability.Server serve drives.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// ServeDeps holds the injectable collaborators of serve. Nil fields use
// the production implementations.
type ServeDeps struct {
	RepositoryFactory          RepositoryFactory
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer
	Listen                     func(network, addr string) (net.Listener, error)
	// OnReady is called with the bound API address once requests are served.
	OnReady func(apiAddr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API that signs staff users in and manages user records,
together with the metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
}

func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.RepositoryFactory == nil {
		deps.RepositoryFactory = openRepository
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if deps.Listen == nil {
		deps.Listen = net.Listen
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, (*config.Config).Validate)
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.SetDefault("staffauth", version, cfg.LogFormat, level)
	logger.Info("starting staffauth",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"token_ttl", cfg.TokenTTL.String(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// api is assigned before the observability server starts serving.
	var api *httpapi.Server
	ready := func() bool { return api != nil && api.Ready() }

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, ready)
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	repo, closeRepo, err := deps.RepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open user store").Wrap(err)
	}
	defer closeRepo()

	api, err = buildAPI(cfg, repo, metrics, logger)
	if err != nil {
		return err
	}

	listener, err := deps.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.ListenAddr).Wrap(err)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			_ = listener.Close() //nolint:errcheck // start error takes precedence
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := api.Serve(listener); serveErr != nil {
			errChan <- serveErr
		}
	}()

	cmd.Println("API listening on", listener.Addr().String())
	if deps.OnReady != nil {
		deps.OnReady(listener.Addr().String())
	}

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case runErr = <-errChan:
		logger.Error("api server failed", "error", runErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// buildAPI wires the auth services and the HTTP server.
func buildAPI(cfg *config.Config, repo auth.UserRepository, metrics *observability.Metrics, logger *slog.Logger) (*httpapi.Server, error) {
	hasher := auth.NewArgon2idHasher(cfg.Hash.Params(), auth.WithHashObserver(metrics.ObserveHash))

	tokens, err := auth.NewTokenIssuer([]byte(cfg.SigningKey), auth.WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, err
	}

	users, err := auth.NewUserServiceWithLogger(repo, hasher, logger)
	if err != nil {
		return nil, err
	}
	signIn, err := auth.NewSignInServiceWithLogger(repo, hasher, tokens, cfg.TokenTTL, logger)
	if err != nil {
		return nil, err
	}
	signIn.SetObserver(metrics.ObserveSignIn)

	return httpapi.NewServer(httpapi.Deps{
		Users:   users,
		SignIn:  signIn,
		Tokens:  tokens,
		Policy:  auth.AuthenticatedPolicy{},
		Logger:  logger,
		Observe: metrics.ObserveRequest,
	})
}

// monitorServerErrors cancels ctx when a background server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			slog.Error("server error, triggering shutdown", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
