package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/metrics"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// CaptureInput contains parameters for the Capture operation.
type CaptureInput struct {
	Subject string // required, normalized by Capture

	// Full captures follower identities instead of just the count.
	Full bool

	// MaxFetch bounds the follower fetch for full captures.
	MaxFetch int

	// Now overrides the capture time (zero means time.Now after the fetch).
	Now time.Time
}

// CaptureOutput contains the result of the Capture operation.
type CaptureOutput struct {
	Snapshot snapshot.Summary `json:"snapshot"`
}

// Capture observes the subject now and appends a snapshot.
func Capture(ctx context.Context, store SnapshotStore, source follower.Source, input CaptureInput) (*CaptureOutput, error) {
	subject, err := normalizeSubject(input.Subject)
	if err != nil {
		return nil, err
	}
	input.Subject = subject

	snap, err := capture(ctx, store, source, input)
	if err != nil {
		return nil, err
	}
	return &CaptureOutput{Snapshot: snap.ToSummary()}, nil
}

// capture fetches and persists one snapshot. Nothing is written unless the
// fetch fully succeeded.
func capture(ctx context.Context, store SnapshotStore, source follower.Source, input CaptureInput) (*snapshot.Snapshot, error) {
	var snap *snapshot.Snapshot
	if input.Full {
		records, err := source.FetchFollowers(ctx, input.Subject, maxFetchOr(input.MaxFetch))
		if err != nil {
			return nil, err
		}
		snap = snapshot.NewFull(input.Subject, nowOr(input.Now), follower.Dedupe(records))
	} else {
		count, err := source.FetchFollowerCount(ctx, input.Subject)
		if err != nil {
			return nil, err
		}
		snap = snapshot.NewCountOnly(input.Subject, nowOr(input.Now), count)
	}

	if _, err := store.Save(ctx, snap); err != nil {
		return nil, err
	}
	metrics.IncSnapshot(string(snap.Fidelity))
	slog.Info("snapshot captured",
		"subject", snap.Subject,
		"snapshot_id", snap.ID,
		"fidelity", snap.Fidelity,
		"follower_count", snap.FollowerCount,
	)
	return snap, nil
}

// DefaultMaxFetch is the single-page ceiling used when none is configured.
const DefaultMaxFetch = 400

func maxFetchOr(n int) int {
	if n <= 0 {
		return DefaultMaxFetch
	}
	return n
}
