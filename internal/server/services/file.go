package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

const (
	DefaultListSize = 10
	MaxListSize     = 100

	MsgNoFile = "No file provided"
)

// Upload describes an incoming file: its original client-side name, the
// declared MIME type, the size in bytes and the content.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Body         io.Reader
}

// FileService manages the files of authenticated users. Metadata lives in
// the database and contents in a blobstore.Store.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blobstore.Store
	log         logging.Logger
	now         func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store blobstore.Store, log logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "files"),
		now:         time.Now,
	}
}

// Upload stores the content and then records its metadata. If the metadata
// insert fails the blob is removed again.
func (s *FileService) Upload(ctx context.Context, userID int64, in Upload) (*models.File, error) {
	if in.OriginalName == "" || in.Body == nil {
		return nil, common.NewValidationError(MsgNoFile)
	}

	file := s.describe(userID, in)
	if err := s.store.Put(ctx, file.FileName, in.Body, in.Size, in.MimeType); err != nil {
		return nil, fmt.Errorf("error storing file: %w", err)
	}

	created, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		s.discard(ctx, file.FileName)
		return nil, fmt.Errorf("error saving file metadata: %w", err)
	}

	return created, nil
}

// List returns one page of the user's files. Non-positive listSize or page
// fall back to the defaults; listSize is capped at MaxListSize.
func (s *FileService) List(ctx context.Context, userID int64, listSize, page int) ([]*models.File, error) {
	if listSize <= 0 {
		listSize = DefaultListSize
	}
	if listSize > MaxListSize {
		listSize = MaxListSize
	}
	if page <= 0 {
		page = 1
	}

	items, err := s.repomanager.Files(s.db).ListByUser(ctx, userID, listSize, (page-1)*listSize)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	return items, nil
}

// Get returns metadata of a file owned by userID. A missing file yields
// common.ErrorNotFound, a file of another user common.ErrorForbidden.
func (s *FileService) Get(ctx context.Context, userID, id int64) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error searching file: %w", err)
	}
	if file.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return file, nil
}

// Open returns metadata and content of a file owned by userID. The caller
// closes the reader.
func (s *FileService) Open(ctx context.Context, userID, id int64) (*models.File, io.ReadCloser, error) {
	file, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Get(ctx, file.FileName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "file content missing", "file_id", file.ID)
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("error reading file: %w", err)
	}
	return file, rc, nil
}

// Update replaces the content of a file. The new blob is written under a new
// key; the old one is removed once the metadata points at the new key.
func (s *FileService) Update(ctx context.Context, userID, id int64, in Upload) (*models.File, error) {
	if in.OriginalName == "" || in.Body == nil {
		return nil, common.NewValidationError(MsgNoFile)
	}

	old, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	file := s.describe(userID, in)
	file.ID = old.ID
	if err := s.store.Put(ctx, file.FileName, in.Body, in.Size, in.MimeType); err != nil {
		return nil, fmt.Errorf("error storing file: %w", err)
	}

	if err := s.repomanager.Files(s.db).Update(ctx, file); err != nil {
		s.discard(ctx, file.FileName)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating file metadata: %w", err)
	}

	s.discard(ctx, old.FileName)
	file.UploadDate = s.now()
	return file, nil
}

// Delete removes the content first and then the metadata row.
func (s *FileService) Delete(ctx context.Context, userID, id int64) error {
	file, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, file.FileName); err != nil {
		return fmt.Errorf("error deleting file from storage: %w", err)
	}

	if err := s.repomanager.Files(s.db).Delete(ctx, id, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting file metadata: %w", err)
	}
	return nil
}

// describe derives metadata for an upload. Name is the base name without
// extension.
func (s *FileService) describe(userID int64, in Upload) *models.File {
	base := filepath.Base(filepath.FromSlash(in.OriginalName))
	ext := filepath.Ext(base)

	return &models.File{
		Name:      strings.TrimSuffix(base, ext),
		FileName:  blobstore.NewKey(userID, strings.ToLower(ext), s.now()),
		Extension: ext,
		MimeType:  in.MimeType,
		Size:      in.Size,
		UserID:    userID,
	}
}

// discard deletes a blob that is no longer referenced. Failures only leave
// an orphan behind, so they are logged and otherwise ignored.
func (s *FileService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to remove orphaned blob", "key", key, "error", err)
	}
}
