package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// DeltaInput contains parameters for ComputeDelta.
type DeltaInput struct {
	Subject  string // normalized
	MaxFetch int
}

// DeltaResult is the set of followers gained since a baseline. It is
// derived on every call and never persisted.
type DeltaResult struct {
	// NewFollowers is in current fetch order, without duplicates.
	NewFollowers []follower.Record

	Baseline     *snapshot.Snapshot
	CurrentCount int

	// Growth is CurrentCount minus the baseline count. May be negative.
	Growth int

	// AssumedFromCountOnly marks a heuristic result: the baseline had only a
	// count, and the first Growth records of the current fetch were assumed
	// to be the newest followers. Provider order is not guaranteed.
	AssumedFromCountOnly bool
}

// ComputeDelta fetches the subject's current followers and diffs them
// against baseline.
//
// Full baseline: exact identity subtraction, case-insensitive on handle
// with the raw id as fallback. Growth is diagnostic only.
//
// Count-only baseline: the current count is re-measured with
// FetchFollowerCount so both sides are the same kind of number. No growth
// means no candidates; otherwise the first Growth fetched records are taken.
func ComputeDelta(ctx context.Context, source follower.Source, baseline *snapshot.Snapshot, input DeltaInput) (*DeltaResult, error) {
	if baseline == nil {
		return nil, errors.NewInvalidRequest("a baseline snapshot is required")
	}
	maxFetch := maxFetchOr(input.MaxFetch)

	switch baseline.Fidelity {
	case snapshot.FidelityFull:
		current, err := source.FetchFollowers(ctx, input.Subject, maxFetch)
		if err != nil {
			return nil, err
		}
		current = follower.Dedupe(current)

		known := follower.KeySet(baseline.Followers)
		fresh := make([]follower.Record, 0)
		for _, r := range current {
			if _, ok := known[r.Key()]; !ok {
				fresh = append(fresh, r)
			}
		}
		return &DeltaResult{
			NewFollowers: fresh,
			Baseline:     baseline,
			CurrentCount: len(current),
			Growth:       len(current) - baseline.FollowerCount,
		}, nil

	case snapshot.FidelityCountOnly:
		count, err := source.FetchFollowerCount(ctx, input.Subject)
		if err != nil {
			return nil, err
		}
		result := &DeltaResult{
			NewFollowers: []follower.Record{},
			Baseline:     baseline,
			CurrentCount: count,
			Growth:       count - baseline.FollowerCount,
		}
		if result.Growth <= 0 {
			return result, nil
		}

		current, err := source.FetchFollowers(ctx, input.Subject, maxFetch)
		if err != nil {
			return nil, err
		}
		current = follower.Dedupe(current)
		n := min(result.Growth, len(current))
		result.NewFollowers = current[:n:n]
		result.AssumedFromCountOnly = true
		return result, nil
	}

	return nil, errors.NewInternal(fmt.Errorf("unknown baseline fidelity %q", baseline.Fidelity))
}
