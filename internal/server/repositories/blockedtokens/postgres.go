package blockedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Block(ctx context.Context, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO blocked_tokens (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsBlocked(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blocked_tokens WHERE token = $1)`

	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&blocked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return blocked, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM blocked_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
