package storage

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultRetention is how long an unsaved recommendation set survives.
	DefaultRetention = 24 * time.Hour

	// DefaultCleanupInterval is how often the janitor sweeps.
	DefaultCleanupInterval = time.Hour
)

// Janitor deletes expired unsaved recommendation sets on a schedule. It
// runs as a background task with its own error capture so a failed sweep
// never affects request handling.
type Janitor struct {
	store     *Store
	interval  time.Duration
	retention time.Duration
}

// NewJanitor returns a janitor sweeping every interval. Zero values select
// the defaults.
func NewJanitor(store *Store, interval, retention time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Janitor{store: store, interval: interval, retention: retention}
}

// Run sweeps until ctx is cancelled. Errors are logged, never returned;
// the next tick retries.
func (j *Janitor) Run(ctx context.Context) {
	slog.Info("Recommendation janitor started", "interval", j.interval, "retention", j.retention)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Recommendation janitor stopped")
			return
		case <-ticker.C:
			n, err := j.store.CleanupRecommendations(ctx, j.retention)
			if err != nil {
				slog.Error("Recommendation cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Deleted expired recommendation sets", "count", n)
			}
		}
	}
}
