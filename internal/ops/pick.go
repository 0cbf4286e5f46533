package ops

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/metrics"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// Pick modes
const (
	ModeGeneral     = "general"
	ModeOrientation = "orientation"
)

// HeuristicDisclosure is shown with every count-only orientation result.
const HeuristicDisclosure = "The baseline only recorded a follower count. The newest followers were assumed " +
	"to be the first ones the provider returned, which is not guaranteed."

// PickOutput contains the winner plus diagnostics for either mode.
type PickOutput struct {
	Mode           string          `json:"mode"`
	Subject        string          `json:"subject"`
	Winner         follower.Record `json:"winner"`
	CandidateCount int             `json:"candidate_count"`

	// RequestedCount is the clamped fetch size (general mode only).
	RequestedCount int `json:"requested_count,omitempty"`

	Orientation *OrientationInfo `json:"orientation,omitempty"`
	PickedAt    string           `json:"picked_at"`
}

// OrientationInfo reports how an orientation pick was derived. The actual
// baseline age is reported next to the requested window since the resolver
// may use a baseline of a different age.
type OrientationInfo struct {
	WindowHours        float64        `json:"window_hours"`
	Policy             BaselinePolicy `json:"policy"`
	BaselineID         string         `json:"baseline_id"`
	BaselineCapturedAt string         `json:"baseline_captured_at"`
	BaselineAgeHours   float64        `json:"baseline_age_hours"`
	BaselineFidelity   string         `json:"baseline_fidelity"`
	BaselineCount      int            `json:"baseline_count"`
	CurrentCount       int            `json:"current_count"`
	Growth             int            `json:"growth"`
	NewFollowers       int            `json:"new_followers"`

	AssumedFromCountOnly bool   `json:"assumed_from_count_only"`
	Disclosure           string `json:"disclosure,omitempty"`

	// CapturedSnapshotID is set when this call also recorded a snapshot.
	CapturedSnapshotID string `json:"captured_snapshot_id,omitempty"`
}

// PickGeneralInput contains parameters for PickGeneral.
type PickGeneralInput struct {
	Subject string

	// Count is how many followers to draw from; 0 means the configured
	// default, other values are clamped to [1, MaxCount].
	Count int

	// Rand overrides the random source (nil means the shared generator).
	Rand *rand.Rand
}

// PickGeneral draws a winner from the subject's current followers.
func PickGeneral(ctx context.Context, source follower.Source, cfg *config.Config, input PickGeneralInput) (out *PickOutput, err error) {
	defer func() { recordPick(ModeGeneral, err) }()

	subject, err := normalizeSubject(input.Subject)
	if err != nil {
		return nil, err
	}
	count := ClampCount(input.Count, cfg)

	records, err := source.FetchFollowers(ctx, subject, count)
	if err != nil {
		return nil, err
	}
	candidates := follower.Dedupe(records)
	if len(candidates) == 0 {
		return nil, errors.NewEmptyCandidateSet(
			fmt.Sprintf("@%s has no visible followers", subject),
			"check that the profile is public and has followers",
		)
	}

	winner, err := SelectWinner(candidates, input.Rand)
	if err != nil {
		return nil, err
	}

	slog.Info("winner picked", "mode", ModeGeneral, "subject", subject, "candidates", len(candidates))
	return &PickOutput{
		Mode:           ModeGeneral,
		Subject:        subject,
		Winner:         winner,
		CandidateCount: len(candidates),
		RequestedCount: count,
		PickedAt:       time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// ClampCount applies the configured default and bounds to a general-mode count.
func ClampCount(n int, cfg *config.Config) int {
	def, maxCount := 50, 200
	if cfg != nil {
		if cfg.DefaultCount > 0 {
			def = cfg.DefaultCount
		}
		if cfg.MaxCount > 0 {
			maxCount = cfg.MaxCount
		}
	}
	if n == 0 {
		n = def
	}
	return max(1, min(n, maxCount))
}

// PickOrientationInput contains parameters for PickOrientation.
type PickOrientationInput struct {
	Subject string
	Window  Window

	// Policy overrides the configured baseline policy.
	Policy BaselinePolicy

	// FullBaseline captures identities when a new baseline is needed.
	FullBaseline bool

	// Now pins the clock (zero means time.Now).
	Now time.Time

	// Rand overrides the random source (nil means the shared generator).
	Rand *rand.Rand
}

// PickOrientation draws a winner from followers gained within the window.
//
// The first call for a subject captures a baseline and fails with
// NO_BASELINE_AVAILABLE; later calls compare against stored snapshots.
func PickOrientation(ctx context.Context, store SnapshotStore, source follower.Source, cfg *config.Config, input PickOrientationInput) (out *PickOutput, err error) {
	defer func() { recordPick(ModeOrientation, err) }()

	subject, err := normalizeSubject(input.Subject)
	if err != nil {
		return nil, err
	}
	if err := input.Window.Validate(); err != nil {
		return nil, err
	}
	policy := input.Policy
	if policy == "" && cfg != nil {
		policy = BaselinePolicy(cfg.BaselinePolicy)
	}
	if policy, err = ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	maxFetch := DefaultMaxFetch
	if cfg != nil && cfg.MaxFetch > 0 {
		maxFetch = cfg.MaxFetch
	}
	now := nowOr(input.Now)

	resolved, err := ResolveBaseline(ctx, store, source, ResolveInput{
		Subject:      subject,
		Window:       input.Window,
		Policy:       policy,
		FullBaseline: input.FullBaseline,
		MaxFetch:     maxFetch,
		Now:          input.Now,
	})
	if err != nil {
		return nil, err
	}
	if resolved.Baseline == nil {
		return nil, errors.NewNoBaselineAvailable(subject, input.Window.Hours(), resolved.Created.ID)
	}

	delta, err := ComputeDelta(ctx, source, resolved.Baseline, DeltaInput{Subject: subject, MaxFetch: maxFetch})
	if err != nil {
		return nil, err
	}

	base := resolved.Baseline
	info := &OrientationInfo{
		WindowHours:          input.Window.Hours(),
		Policy:               policy,
		BaselineID:           base.ID,
		BaselineCapturedAt:   base.CapturedAt.UTC().Format(time.RFC3339),
		BaselineAgeHours:     roundHours(base.Age(now)),
		BaselineFidelity:     string(base.Fidelity),
		BaselineCount:        base.FollowerCount,
		CurrentCount:         delta.CurrentCount,
		Growth:               delta.Growth,
		NewFollowers:         len(delta.NewFollowers),
		AssumedFromCountOnly: delta.AssumedFromCountOnly,
	}
	if delta.AssumedFromCountOnly {
		info.Disclosure = HeuristicDisclosure
	}
	if resolved.Created != nil {
		info.CapturedSnapshotID = resolved.Created.ID
	}

	if len(delta.NewFollowers) == 0 {
		msg := fmt.Sprintf("no new followers for @%s since %s", subject, info.BaselineCapturedAt)
		if base.Fidelity != snapshot.FidelityFull {
			msg = fmt.Sprintf("no follower growth for @%s since %s (%d then, %d now)",
				subject, info.BaselineCapturedAt, base.FollowerCount, delta.CurrentCount)
		}
		pErr := errors.NewEmptyCandidateSet(msg, "try a longer window, or run again later")
		pErr.Details = map[string]any{
			"baseline_id":        base.ID,
			"baseline_age_hours": info.BaselineAgeHours,
			"growth":             delta.Growth,
		}
		return nil, pErr
	}

	winner, err := SelectWinner(delta.NewFollowers, input.Rand)
	if err != nil {
		return nil, err
	}
	if delta.AssumedFromCountOnly {
		metrics.HeuristicPicks.Inc()
	}

	slog.Info("winner picked",
		"mode", ModeOrientation,
		"subject", subject,
		"candidates", len(delta.NewFollowers),
		"baseline_id", base.ID,
		"heuristic", delta.AssumedFromCountOnly,
	)
	return &PickOutput{
		Mode:           ModeOrientation,
		Subject:        subject,
		Winner:         winner,
		CandidateCount: len(delta.NewFollowers),
		Orientation:    info,
		PickedAt:       now.UTC().Format(time.RFC3339),
	}, nil
}

func roundHours(d time.Duration) float64 {
	return float64(d.Round(time.Minute)) / float64(time.Hour)
}

func recordPick(mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(errors.ErrInternal)
		if pe := errors.As(err); pe != nil {
			outcome = string(pe.Code)
		}
	}
	metrics.IncPick(mode, outcome)
}
