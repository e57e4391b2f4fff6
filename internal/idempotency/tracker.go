// Package idempotency tracks already-processed signal fingerprints so a
// signal executes at most once per process lifetime.
package idempotency

import (
	"context"

	"sigrun/internal/logger"
)

// Store is an optional persistence hook. When wired, marked fingerprints
// survive restarts; otherwise the tracker cold-starts empty.
type Store interface {
	LoadFingerprints(ctx context.Context) ([]string, error)
	SaveFingerprint(ctx context.Context, fingerprint string) error
}

// Tracker is an in-memory fingerprint set with a single writer (the trading
// loop). No locking: the loop is the only goroutine that touches it.
type Tracker struct {
	seen  map[string]struct{}
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		seen:  make(map[string]struct{}),
		store: store,
	}
}

// Restore loads previously-marked fingerprints from the store, if one is
// wired. Called once before the loop starts.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	fps, err := t.store.LoadFingerprints(ctx)
	if err != nil {
		return err
	}
	for _, fp := range fps {
		t.seen[fp] = struct{}{}
	}
	if len(fps) > 0 {
		logger.Infof("idempotency: restored %d fingerprints from store", len(fps))
	}
	return nil
}

func (t *Tracker) Seen(fingerprint string) bool {
	_, ok := t.seen[fingerprint]
	return ok
}

// MarkSeen records a fingerprint. Store failures are logged, never returned:
// the in-memory set is authoritative for this process.
func (t *Tracker) MarkSeen(ctx context.Context, fingerprint string) {
	t.seen[fingerprint] = struct{}{}
	if t.store == nil {
		return
	}
	if err := t.store.SaveFingerprint(ctx, fingerprint); err != nil {
		logger.Warnf("idempotency: persisting fingerprint=%s failed: %v", fingerprint, err)
	}
}

func (t *Tracker) Len() int { return len(t.seen) }
