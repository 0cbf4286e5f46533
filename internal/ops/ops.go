package ops

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// SnapshotStore is the persistence the pick pipeline depends on.
// *db.SnapshotStore implements it.
type SnapshotStore interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) (string, error)
	FindClosestTo(ctx context.Context, subject string, target time.Time) (*snapshot.Snapshot, error)
	FindEarliestSince(ctx context.Context, subject string, since time.Time) (*snapshot.Snapshot, error)
}

// SnapshotReader is the read side used by browse operations.
type SnapshotReader interface {
	GetByID(ctx context.Context, id string) (*snapshot.Snapshot, error)
	ListBySubject(ctx context.Context, subject string, limit, offset int) ([]snapshot.Summary, int, error)
	ListSubjects(ctx context.Context) ([]snapshot.SubjectInfo, error)
}

// Window is a lookback duration in hours.
type Window float64

// WindowPresets are the windows offered by the CLI and web form.
var WindowPresets = []string{"30m", "1h", "2h"}

// MaxWindowHours bounds the lookback to 100 years.
const MaxWindowHours = 100 * 365 * 24

// Duration converts the window to a time.Duration, saturating at the
// largest representable duration.
func (w Window) Duration() time.Duration {
	d := float64(w) * float64(time.Hour)
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Hours returns the window as float hours.
func (w Window) Hours() float64 { return float64(w) }

// String renders the window as "30 minutes", "2 hours", ...
func (w Window) String() string { return errors.FormatHours(float64(w)) }

// ParseWindow accepts plain hours ("1.5") or a Go duration ("30m", "2h").
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.NewInvalidRequest("time window is required")
	}
	var hours float64
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		hours = f
	} else if d, err := time.ParseDuration(s); err == nil {
		hours = d.Hours()
	} else {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid time window %q (use hours like 1.5 or a duration like 30m)", s))
	}
	w := Window(hours)
	if err := w.Validate(); err != nil {
		return 0, err
	}
	return w, nil
}

// Validate checks that the window is a positive, finite number of hours.
func (w Window) Validate() error {
	h := float64(w)
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return errors.NewInvalidRequest("time window must be a positive number of hours")
	}
	if h > MaxWindowHours {
		return errors.NewInvalidRequest(fmt.Sprintf("time window must be at most %d hours", MaxWindowHours))
	}
	return nil
}

// BaselinePolicy selects how the resolver treats existing snapshots.
type BaselinePolicy string

const (
	// PolicyNearest accepts the closest non-future snapshot of any age.
	PolicyNearest BaselinePolicy = "nearest"

	// PolicyWithinWindow accepts a snapshot only if it is no older than the window.
	PolicyWithinWindow BaselinePolicy = "within_window"

	// PolicyAlwaysCapture resolves like nearest and also records a fresh
	// capture on every call.
	PolicyAlwaysCapture BaselinePolicy = "always_capture"
)

// ParsePolicy validates a policy name. Empty yields PolicyNearest.
func ParsePolicy(s string) (BaselinePolicy, error) {
	switch p := BaselinePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyNearest, nil
	case PolicyNearest, PolicyWithinWindow, PolicyAlwaysCapture:
		return p, nil
	default:
		return "", errors.NewInvalidRequest("policy must be one of: nearest, within_window, always_capture")
	}
}

// normalizeSubject validates and normalizes caller input into a subject key.
func normalizeSubject(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.NewInvalidRequest("username is required")
	}
	subject := follower.NormalizeSubject(raw)
	if !follower.ValidSubject(subject) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%q is not a valid username", raw))
	}
	return subject, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
