package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go-media-share/internal/event"
	"go-media-share/internal/storage"
)

const (
	DefaultOrphanGracePeriod = time.Hour
	sweepBatchSize           = 500
)

type SweepResult struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// OrphanSweeper removes blobs no media record references. Blobs younger
// than the grace period are left alone so in-flight uploads survive.
type OrphanSweeper struct {
	blobs storage.BlobStore
	media MediaStore
	grace time.Duration
	bus   event.Bus
	now   func() time.Time
}

func NewOrphanSweeper(blobs storage.BlobStore, media MediaStore, grace time.Duration, bus event.Bus) *OrphanSweeper {
	if grace <= 0 {
		grace = DefaultOrphanGracePeriod
	}
	return &OrphanSweeper{blobs: blobs, media: media, grace: grace, bus: bus, now: time.Now}
}

func (s *OrphanSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	cutoff := s.now().Add(-s.grace)
	candidates := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		if blob.ModTime.Before(cutoff) {
			candidates = append(candidates, blob.Key)
		}
	}

	result := SweepResult{Scanned: len(blobs)}
	for start := 0; start < len(candidates); start += sweepBatchSize {
		end := min(start+sweepBatchSize, len(candidates))
		batch := candidates[start:end]

		referenced, err := s.media.ReferencedPaths(ctx, batch)
		if err != nil {
			return result, fmt.Errorf("check referenced blobs: %w", err)
		}

		for _, key := range batch {
			if _, ok := referenced[key]; ok {
				continue
			}
			if err := s.blobs.Delete(ctx, key); err != nil {
				result.Failed++
				slog.Warn("failed to delete orphaned blob", "key", key, "error", err)
				continue
			}
			result.Deleted++
			slog.Debug("orphaned blob deleted", "key", key)
		}
	}

	if result.Deleted > 0 || result.Failed > 0 {
		slog.Info("orphan sweep finished", "scanned", result.Scanned, "deleted", result.Deleted, "failed", result.Failed)
		if s.bus != nil {
			s.bus.Publish(event.Event{Type: event.TypeOrphansSwept, Payload: result})
		}
	}

	return result, nil
}
