package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/ingest"
	"github.com/nesarahmed/airsense/pkg/realtime"
	"github.com/nesarahmed/airsense/pkg/retention"
	"github.com/nesarahmed/airsense/pkg/storage"
	"github.com/nesarahmed/airsense/pkg/storage/badger"
)

// BroadcastRealtime periodically pushes the realtime buffer to
// WebSocket clients, so dashboards stay current between readings.
func BroadcastRealtime(ctx context.Context, buffer *realtime.Buffer, hub *ingest.LiveHub) {
	ticker := time.NewTicker(config.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Skip if no clients connected - saves resources
			if !hub.HasClients() {
				continue
			}

			entries := buffer.Snapshot()
			if len(entries) == 0 {
				continue
			}

			update := map[string]interface{}{
				"type":      "realtime_update",
				"timestamp": time.Now().Unix(),
				"realtime":  entries,
				"count":     len(entries),
			}
			if err := hub.Broadcast(update); err != nil {
				log.Printf("Failed to broadcast realtime buffer: %v", err)
			}
		}
	}
}

// RunRetention prunes old raw readings on a daily schedule. Hourly
// aggregates are never pruned.
func RunRetention(pruner *retention.Pruner, stop chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.RetentionInterval)
	defer ticker.Stop()

	prune := func() {
		start := time.Now()
		deleted, err := pruner.Run(context.Background())
		if err != nil {
			log.Printf("Retention pruning failed: %v", err)
			return
		}
		if deleted > 0 {
			log.Printf("Retention pruned %d readings in %v", deleted, time.Since(start).Round(time.Millisecond))
		}
	}

	// Run once on startup (non-blocking)
	go prune()

	for {
		select {
		case <-ticker.C:
			prune()
		case <-stop:
			log.Println("Stopping retention scheduler")
			return
		}
	}
}

// RunBadgerGC runs BadgerDB garbage collection periodically to reclaim disk space.
// BadgerDB uses LSM trees which accumulate deleted data in the value log.
func RunBadgerGC(store storage.Store, stop chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.BadgerGCInterval)
	defer ticker.Stop()

	badgerStore, ok := store.(*badger.Store)
	if !ok {
		log.Println("Storage is not BadgerDB, skipping GC")
		return
	}

	log.Printf("BadgerDB GC scheduler started (runs every %v)", config.BadgerGCInterval)

	for {
		select {
		case <-ticker.C:
			start := time.Now()

			// One iteration per tick at 0.5 discard ratio; badger returns
			// an error when no rewrite was needed, which is not a failure.
			err := badgerStore.RunGC(0.5)
			if err != nil {
				log.Printf("GC completed in %v (no rewrite needed)", time.Since(start).Round(time.Millisecond))
			} else {
				log.Printf("GC completed in %v (disk space reclaimed)", time.Since(start).Round(time.Millisecond))
			}
		case <-stop:
			log.Println("Stopping BadgerDB GC scheduler")
			return
		}
	}
}
