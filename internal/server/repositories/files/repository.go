// Package files stores metadata of uploaded files. Contents live in blob
// storage; rows only reference them by storage key.
package files

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	Update(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, id, userID int64) error
}
