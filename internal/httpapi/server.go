// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

// Package httpapi exposes the user and sign-in operations over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"

	"github.com/staffauth/staffauth/internal/auth"
)

// RequestObserver receives the route pattern and status of every response.
type RequestObserver func(route string, status int)

// Deps are the collaborators a Server needs. Policy defaults to
// auth.AuthenticatedPolicy and Logger to a discard logger.
type Deps struct {
	Users   *auth.UserService
	SignIn  *auth.SignInService
	Tokens  *auth.TokenIssuer
	Policy  auth.CapabilityPolicy
	Logger  *slog.Logger
	Observe RequestObserver
}

// Server is the fiber application serving /api.
type Server struct {
	app     *fiber.App
	users   *auth.UserService
	signIn  *auth.SignInService
	tokens  *auth.TokenIssuer
	policy  auth.CapabilityPolicy
	logger  *slog.Logger
	observe RequestObserver
	ready   atomic.Bool
}

// NewServer builds the application and registers every route.
func NewServer(deps Deps) (*Server, error) {
	if deps.Users == nil {
		return nil, oops.Errorf("user service is required")
	}
	if deps.SignIn == nil {
		return nil, oops.Errorf("sign-in service is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if deps.Policy == nil {
		deps.Policy = auth.AuthenticatedPolicy{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		users:   deps.Users,
		signIn:  deps.SignIn,
		tokens:  deps.Tokens,
		policy:  deps.Policy,
		logger:  deps.Logger,
		observe: deps.Observe,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "staffauth",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(s.observeRequests)

	api := s.app.Group("/api")
	api.Post("/signin", s.handleSignIn)
	api.Post("/register-user", s.requireCapability(auth.CapRegisterUser), s.handleRegister)
	api.Get("/", s.requireCapability(auth.CapListUsers), s.handleList)
	api.Get("/read-user/:id", s.requireCapability(auth.CapReadUser), s.handleRead)
	api.Get("/user-profile/:id", s.requireCapability(auth.CapReadProfile), s.handleProfile)
	api.Put("/update-user/:id", s.requireCapability(auth.CapUpdateUser), s.handleUpdate)
	api.Put("/update/:id", s.requireCapability(auth.CapChangePassword), s.handleChangePassword)
	api.Delete("/delete-user/:id", s.requireCapability(auth.CapDeleteUser), s.handleDelete)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Ready reports whether Serve has bound its listener.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Serve handles requests on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.ready.Store(true)
	s.logger.Info("api server started", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil {
		s.ready.Store(false)
		return oops.Code("API_SERVE_FAILED").With("addr", ln.Addr().String()).Wrap(err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return oops.With("operation", "shutdown_api_server").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}
