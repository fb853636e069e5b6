package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically evicts expired entries from a Store.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(store *Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := s.store.Sweep(s.store.Now()); removed > 0 {
				s.logger.Debug("session sweep", zap.Int("removed", removed))
			}
		}
	}
}
