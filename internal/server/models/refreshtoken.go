package models

import "time"

// RefreshToken is the single active refresh credential of a user.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
