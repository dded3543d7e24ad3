// Package blockedtokens stores access tokens revoked before their natural
// expiry.
package blockedtokens

import (
	"context"
	"time"
)

// Repository is the revocation list.
type Repository interface {
	// Block adds token to the list until expiresAt. Blocking an already
	// blocked token is not an error.
	Block(ctx context.Context, token string, expiresAt time.Time) error
	IsBlocked(ctx context.Context, token string) (bool, error)
	// DeleteExpired purges rows whose token expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
