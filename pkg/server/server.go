/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes the claims service over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-lib-go/healthz"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/claims"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	fabImpl "github.com/espressoclaims/hyperledger-fabric-network/pkg/fab"
)

//go:generate mockgen -destination mocks/mockclaimsservice.go -package mocks . ClaimsService

var logger = logging.NewLogger("claimsgw.server")

// maxResponseMargin caps the time reserved for writing a response.
const maxResponseMargin = time.Second

// ClaimsService is the backend of the claim routes.
type ClaimsService interface {
	GetClaims(ctx context.Context) ([]byte, error)
	GetClaim(ctx context.Context, id string) ([]byte, error)
	AddClaim(ctx context.Context, claim claims.Claim) (string, error)
}

// Server is the HTTP front end of the gateway.
type Server struct {
	config  fabImpl.ServerConfig
	claims  ClaimsService
	health  *healthz.HealthHandler
	limiter *rate.Limiter
	router  *mux.Router

	mutex      sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// Option configures the server.
type Option func(s *Server) error

// WithHealthChecker adds a component to /healthz.
func WithHealthChecker(component string, checker healthz.HealthChecker) Option {
	return func(s *Server) error {
		return s.health.RegisterChecker(component, checker)
	}
}

// WithPrometheus serves the default prometheus registry on /metrics.
func WithPrometheus() Option {
	return func(s *Server) error {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
		return nil
	}
}

// New returns a server for svc. Nothing listens until Start is called.
// An unset or zero rate limit disables limiting.
func New(config fabImpl.ServerConfig, svc ClaimsService, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("claims service is required")
	}

	limit := rate.Inf
	if config.RateLimit != nil && *config.RateLimit > 0 {
		limit = rate.Limit(*config.RateLimit)
	}

	s := &Server{
		config:  config,
		claims:  svc,
		health:  healthz.NewHealthHandler(),
		limiter: rate.NewLimiter(limit, config.RateBurst),
		router:  mux.NewRouter(),
	}
	s.routes()

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WithMessage(err, "invalid server option")
		}
	}
	return s, nil
}

func (s *Server) routes() {
	s.router.Handle("/healthz", s.health).Methods(http.MethodGet)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/getClaims", s.getClaims).Methods(http.MethodGet)
	api.HandleFunc("/getClaim/{id}", s.getClaim).Methods(http.MethodGet)
	api.HandleFunc("/addClaim", s.addClaim).Methods(http.MethodPost)
	api.HandleFunc("/deleteClaim", s.deleteClaim).Methods(http.MethodDelete)
}

// ServeHTTP dispatches to the routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !s.limiter.Allow() {
			logger.Debugf("rate limit exceeded for %s %s", req.Method, req.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.httpServer != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.config.ListenAddress)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      s,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server stopped: %s", err)
		}
	}(s.httpServer)

	logger.Infof("listening on %s", listener.Addr())
	return nil
}

// Addr returns the listening address, or an empty string before Start.
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// submitTimeout bounds a claim submission so that its response can still be
// written before the server's write timeout. Zero means no bound.
func (s *Server) submitTimeout() time.Duration {
	wt := s.config.WriteTimeout
	if wt <= 0 {
		return 0
	}
	margin := wt / 10
	if margin > maxResponseMargin {
		margin = maxResponseMargin
	}
	return wt - margin
}

// Stop waits for in-flight requests until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mutex.Lock()
	srv := s.httpServer
	s.mutex.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
