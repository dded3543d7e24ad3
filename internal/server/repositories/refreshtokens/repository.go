// Package refreshtokens declares the refresh token ledger: at most one
// active refresh token per user, rotated in place.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

// Repository defines operations for issuing, rotating and revoking refresh tokens.
type Repository interface {
	// Create inserts the first refresh token of a freshly registered user.
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Save stores token as the user's only refresh token, replacing any
	// previous one.
	Save(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Rotate atomically replaces oldToken with newToken for userID. It returns
	// common.ErrorNotFound when no unexpired row holds oldToken for that user,
	// which is how a replayed or raced refresh token is detected.
	Rotate(ctx context.Context, userID int64, oldToken, newToken string, expiresAt, now time.Time) error

	// FindByTokenAndUser returns common.ErrorNotFound when absent.
	FindByTokenAndUser(ctx context.Context, token string, userID int64) (*models.RefreshToken, error)

	// DeleteByToken and DeleteByUser are idempotent.
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes rows that expired before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
