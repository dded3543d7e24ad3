// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the service layer.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}
