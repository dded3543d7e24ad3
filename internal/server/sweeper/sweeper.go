// Package sweeper periodically removes expired revocation and refresh rows.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
)

// Purger deletes rows whose expiry has passed and reports how many went.
type Purger interface {
	PurgeExpired(ctx context.Context) (blocked, refresh int64, err error)
}

type Sweeper struct {
	purger   Purger
	interval time.Duration
	timeout  time.Duration
	logger   logging.Logger
}

func New(p Purger, interval time.Duration, l logging.Logger) *Sweeper {
	return &Sweeper{
		purger:   p,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   l.With("module", "sweeper"),
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	blocked, refresh, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error(ctx, "purge failed", "error", err)
		return
	}
	if blocked > 0 || refresh > 0 {
		s.logger.Info(ctx, "purged expired tokens", "blocked", blocked, "refresh", refresh)
	}
}
