// Package blobstore keeps the contents of uploaded files. Keys are opaque
// slash-separated paths chosen by the caller.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// Store persists blobs by key. Get returns common.ErrorNotFound for unknown
// keys; Delete of an unknown key is not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh storage key for a file of userID, partitioned by
// upload date: users/<uid>/<yyyy>/<mm>/<dd>/<uuid><ext>.
func NewKey(userID int64, ext string, now time.Time) string {
	return path.Join("users",
		fmt.Sprint(userID),
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
		uuid.NewString()+ext)
}
