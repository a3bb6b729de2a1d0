package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/interprep/internal/store"
)

// janitorInterval is how often abandoned flows are swept.
const janitorInterval = time.Minute

// StartJanitor runs a background goroutine that returns stale non-idle
// sessions to the idle state, so a user who walked away mid-flow is
// not stuck answering a forgotten question next week.
func StartJanitor(ctx context.Context, repo store.Repository, staleAfter time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(janitorInterval)
	go func() {
		defer ticker.Stop()
		logger.Info("session janitor started", "interval", janitorInterval, "stale_after", staleAfter)

		for {
			select {
			case <-ticker.C:
				reset, err := repo.ResetStaleSessions(ctx, staleAfter)
				if err != nil {
					logger.Error("stale session sweep failed", "error", err)
					continue
				}
				if reset > 0 {
					logger.Info("reset stale sessions", "count", reset)
				}
			case <-ctx.Done():
				logger.Info("session janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
