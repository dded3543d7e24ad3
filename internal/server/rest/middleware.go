package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userKey ctxKey = "user"

// UserFromContext returns the user attached by the auth middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(common.BearerPrefix):])
}

// authenticate resolves the bearer token to a user. Missing token or unknown
// user is 401; a blocked, forged or expired token is 403.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, msgNoToken)
			return
		}

		user, err := s.users.Authorize(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrTokenBlocked):
				writeMessage(w, http.StatusForbidden, msgTokenBlocked)
			case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
				writeMessage(w, http.StatusForbidden, msgInvalidToken)
			case errors.Is(err, common.ErrorUnauthorized):
				writeMessage(w, http.StatusUnauthorized, msgUserNotFound)
			default:
				s.internalError(w, r, err)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// logFormatter feeds chi's RequestLogger into logging.Logger.
type logFormatter struct {
	logger logging.Logger
}

func (f *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &logEntry{logger: f.logger, r: r}
}

type logEntry struct {
	logger logging.Logger
	r      *http.Request
}

func (e *logEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	e.logger.Info(e.r.Context(), "request",
		"method", e.r.Method,
		"path", e.r.URL.Path,
		"status", status,
		"bytes", bytes,
		"duration", elapsed,
		"request_id", middleware.GetReqID(e.r.Context()),
	)
}

// Panic is called by middleware.Recoverer before it answers 500.
func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error(e.r.Context(), "panic recovered",
		"panic", v,
		"stack", string(stack),
		"request_id", middleware.GetReqID(e.r.Context()),
	)
}

// internalError logs err and replies with a generic 500.
func (s *HTTPServer) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}
