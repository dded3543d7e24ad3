// Package users declares the credential store contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

// Repository persists user accounts. Lookups return common.ErrorNotFound
// when nothing matches; Create returns common.ErrorAlreadyExists when the
// login is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}
