package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// ResolveInput contains parameters for ResolveBaseline.
type ResolveInput struct {
	Subject string // normalized
	Window  Window
	Policy  BaselinePolicy // default: PolicyNearest

	// FullBaseline captures identities (not just a count) when a capture is needed.
	FullBaseline bool
	MaxFetch     int

	// Now is the resolution time (zero means time.Now).
	Now time.Time
}

// ResolveOutput is the outcome of ResolveBaseline.
type ResolveOutput struct {
	// Baseline is the snapshot to compare against; nil when none is usable yet.
	Baseline *snapshot.Snapshot

	// Created is the snapshot captured by this call, if any.
	Created *snapshot.Snapshot

	// Target is now minus the window.
	Target time.Time
}

// ResolveBaseline finds the stored snapshot best matching the requested
// lookback, capturing a new one when there is nothing usable. A snapshot
// captured by this call is never returned as its own baseline.
//
// Source and store failures during a required capture propagate unchanged.
// Under PolicyAlwaysCapture the extra capture is best-effort once a
// baseline exists.
func ResolveBaseline(ctx context.Context, store SnapshotStore, source follower.Source, input ResolveInput) (*ResolveOutput, error) {
	if err := input.Window.Validate(); err != nil {
		return nil, err
	}
	policy := input.Policy
	if policy == "" {
		policy = PolicyNearest
	}
	now := nowOr(input.Now)
	target := now.Add(-input.Window.Duration())

	baseline, err := store.FindClosestTo(ctx, input.Subject, target)
	if err != nil {
		return nil, err
	}

	if baseline != nil && policy == PolicyWithinWindow && baseline.CapturedAt.Before(target) {
		// The closest match is older than the window. The oldest snapshot
		// inside the window is the next closest to target.
		inside, err := store.FindEarliestSince(ctx, input.Subject, target)
		if err != nil {
			return nil, err
		}
		if inside != nil {
			baseline = inside
		} else {
			slog.Debug("baseline outside window",
				"subject", input.Subject,
				"snapshot_id", baseline.ID,
				"age", baseline.Age(now).String(),
			)
			baseline = nil
		}
	}

	out := &ResolveOutput{Baseline: baseline, Target: target}
	captureInput := CaptureInput{
		Subject:  input.Subject,
		Full:     input.FullBaseline,
		MaxFetch: input.MaxFetch,
		Now:      input.Now,
	}

	if baseline == nil {
		created, err := capture(ctx, store, source, captureInput)
		if err != nil {
			return nil, err
		}
		out.Created = created
		return out, nil
	}

	if policy == PolicyAlwaysCapture {
		created, err := capture(ctx, store, source, captureInput)
		if err != nil {
			slog.Warn("extra baseline capture failed",
				"subject", input.Subject,
				"error", err,
			)
		} else {
			out.Created = created
		}
	}

	return out, nil
}
