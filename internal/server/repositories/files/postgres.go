package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

// PostgresRepository implements file metadata storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts file and fills in ID and UploadDate.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (name, filename, extension, mime_type, size, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, upload_date
	`
	err := r.db.QueryRowContext(ctx, query,
		file.Name, file.FileName, file.Extension, file.MimeType, file.Size, file.UserID).
		Scan(&file.ID, &file.UploadDate)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return file, nil
}

// ListByUser returns one page of the user's files, newest id first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.File, error) {
	query := `
		SELECT id, name, filename, extension, mime_type, size, upload_date, user_id
		FROM files
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0)
	for rows.Next() {
		item, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := `
		SELECT id, name, filename, extension, mime_type, size, upload_date, user_id
		FROM files
		WHERE id = $1
	`
	item, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

// Update replaces the content-describing fields of the user's file and bumps
// upload_date. Returns common.ErrorNotFound when no row matched.
func (r *PostgresRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files
		SET name = $1, filename = $2, extension = $3, mime_type = $4, size = $5, upload_date = now()
		WHERE id = $6 AND user_id = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		file.Name, file.FileName, file.Extension, file.MimeType, file.Size, file.ID, file.UserID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes the user's file row. Returns common.ErrorNotFound when no row matched.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM files WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	item := &models.File{}
	err := s.Scan(&item.ID, &item.Name, &item.FileName, &item.Extension,
		&item.MimeType, &item.Size, &item.UploadDate, &item.UserID)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
