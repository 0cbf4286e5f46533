package snapshot

import (
	"fmt"
	"time"

	"github.com/hpungsan/followpick/internal/follower"
)

// Fidelity says whether a snapshot holds follower identities or only a count.
type Fidelity string

const (
	FidelityFull      Fidelity = "full"
	FidelityCountOnly Fidelity = "count_only"
)

// Valid reports whether f is a known fidelity.
func (f Fidelity) Valid() bool {
	return f == FidelityFull || f == FidelityCountOnly
}

// Snapshot is a persisted observation of a subject's followers.
// Snapshots are append-only: created once per capture and never mutated.
type Snapshot struct {
	// ID is a ULID that uniquely identifies this snapshot
	ID string

	// Subject is the normalized username that was observed
	Subject string

	// CapturedAt is when the observation completed
	CapturedAt time.Time

	// FollowerCount is the observed follower total
	FollowerCount int

	Fidelity Fidelity

	// Followers holds identities in provider order. Empty for count-only snapshots.
	Followers []follower.Record
}

// Validate checks the fidelity invariants.
func (s *Snapshot) Validate() error {
	if s.Subject == "" {
		return fmt.Errorf("snapshot subject is empty")
	}
	if !s.Fidelity.Valid() {
		return fmt.Errorf("unknown fidelity %q", s.Fidelity)
	}
	if s.FollowerCount < 0 {
		return fmt.Errorf("negative follower count %d", s.FollowerCount)
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("snapshot capture time is zero")
	}
	switch s.Fidelity {
	case FidelityFull:
		if s.FollowerCount > 0 && len(s.Followers) == 0 {
			return fmt.Errorf("full snapshot with %d followers has no records", s.FollowerCount)
		}
	case FidelityCountOnly:
		if len(s.Followers) > 0 {
			return fmt.Errorf("count-only snapshot must not carry records")
		}
	}
	return nil
}

// Age returns how long before now the snapshot was captured.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

// NewFull builds a full-fidelity snapshot from fetched records.
func NewFull(subject string, at time.Time, records []follower.Record) *Snapshot {
	return &Snapshot{
		Subject:       subject,
		CapturedAt:    at,
		FollowerCount: len(records),
		Fidelity:      FidelityFull,
		Followers:     records,
	}
}

// NewCountOnly builds a count-only snapshot.
func NewCountOnly(subject string, at time.Time, count int) *Snapshot {
	return &Snapshot{
		Subject:       subject,
		CapturedAt:    at,
		FollowerCount: count,
		Fidelity:      FidelityCountOnly,
	}
}
