// Package rest exposes the session and file services over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

// UserService is the session core as used by the handlers.
type UserService interface {
	Signup(ctx context.Context, login, password string) (*services.TokenPair, error)
	Signin(ctx context.Context, login, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Authorize(ctx context.Context, accessToken string) (*models.User, error)
}

// FileService manages the files of the authenticated user.
type FileService interface {
	Upload(ctx context.Context, userID int64, in services.Upload) (*models.File, error)
	List(ctx context.Context, userID int64, listSize, page int) ([]*models.File, error)
	Get(ctx context.Context, userID, id int64) (*models.File, error)
	Open(ctx context.Context, userID, id int64) (*models.File, io.ReadCloser, error)
	Update(ctx context.Context, userID, id int64, in services.Upload) (*models.File, error)
	Delete(ctx context.Context, userID, id int64) error
}

// HTTPServer serves the REST API and /metrics.
type HTTPServer struct {
	address         string
	users           UserService
	files           FileService
	logger          logging.Logger
	registry        *prometheus.Registry
	metrics         *Metrics
	shutdownTimeout time.Duration
	maxUploadSize   int64
}

// DefaultMaxUploadSize bounds a single multipart request body.
const DefaultMaxUploadSize int64 = 100 << 20

func NewHTTPServer(a string, l logging.Logger, us UserService, fs FileService, reg *prometheus.Registry, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:         a,
		logger:          l.With("module", "http_server"),
		users:           us,
		files:           fs,
		registry:        reg,
		metrics:         NewMetrics(reg),
		shutdownTimeout: shutdownTimeout,
		maxUploadSize:   DefaultMaxUploadSize,
	}
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully within the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an already open listener.
func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-shutdownErr
}
