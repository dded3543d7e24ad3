package models

import "time"

// BlockedToken is an access token revoked before its natural expiry.
// ExpiresAt mirrors the token's exp claim; past that the row may be purged.
type BlockedToken struct {
	ID        int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
