// Package retention prunes raw readings past their useful life.
// Hourly aggregates are the long-term record and are never pruned;
// the raw log only needs to cover recent history (live views, exports,
// and recomputation of the current hour).
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/nesarahmed/airsense/pkg/storage"
)

// Pruner deletes raw readings older than the configured age.
type Pruner struct {
	store  storage.Store
	maxAge time.Duration
}

// New creates a pruner keeping readings for maxAge.
func New(store storage.Store, maxAge time.Duration) *Pruner {
	return &Pruner{store: store, maxAge: maxAge}
}

// Run deletes readings older than now-maxAge and returns the count.
func (p *Pruner) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-p.maxAge)
	deleted, err := p.store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune readings before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
