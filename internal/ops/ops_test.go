package ops

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/followpick/internal/db"
	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
)

var testNow = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

// fakeSource is an in-memory follower.Source.
type fakeSource struct {
	mu sync.Mutex

	followers []follower.Record
	count     int

	followersErr error
	countErr     error

	followerCalls int
	countCalls    int
	lastMax       int
}

func (f *fakeSource) FetchFollowers(_ context.Context, _ string, maxCount int) ([]follower.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followerCalls++
	f.lastMax = maxCount
	if f.followersErr != nil {
		return nil, f.followersErr
	}
	out := f.followers
	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return append([]follower.Record(nil), out...), nil
}

func (f *fakeSource) FetchFollowerCount(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

// recs builds records from handles.
func recs(handles ...string) []follower.Record {
	out := make([]follower.Record, len(handles))
	for i, h := range handles {
		out[i] = follower.Record{Handle: h}
	}
	return out
}

func handlesOf(records []follower.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Handle
	}
	return out
}

// newTestStore opens a temp SQLite store whose clock is pinned to now.
func newTestStore(t *testing.T, now time.Time) *db.SnapshotStore {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := db.NewSnapshotStore(database)
	store.Now = func() time.Time { return now }
	return store
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"1", 1, false},
		{"0.5", 0.5, false},
		{"30m", 0.5, false},
		{"2h", 2, false},
		{"90m", 1.5, false},
		{" 1h ", 1, false},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, true},
		{"soon", 0, true},
		{"NaN", 0, true},
		{"876000", MaxWindowHours, false},
		{"876001", 0, true},
		{"1e10", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Errorf("error code = %v, want INVALID_REQUEST", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseWindow(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWindowPresetsParse(t *testing.T) {
	for _, p := range WindowPresets {
		if _, err := ParseWindow(p); err != nil {
			t.Errorf("preset %q does not parse: %v", p, err)
		}
	}
}

func TestWindow_Duration(t *testing.T) {
	if got := Window(0.5).Duration(); got != 30*time.Minute {
		t.Errorf("Duration() = %v, want 30m", got)
	}
	if got := Window(1e10).Duration(); got != time.Duration(math.MaxInt64) {
		t.Errorf("Duration() of huge window = %v, want saturation at MaxInt64", got)
	}
	if got := Window(2).String(); got != "2 hours" {
		t.Errorf("String() = %q, want %q", got, "2 hours")
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]BaselinePolicy{
		"":               PolicyNearest,
		"nearest":        PolicyNearest,
		"WITHIN_WINDOW":  PolicyWithinWindow,
		"always_capture": PolicyAlwaysCapture,
	} {
		got, err := ParsePolicy(in)
		if err != nil {
			t.Fatalf("ParsePolicy(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParsePolicy("latest"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ParsePolicy(latest) error = %v, want INVALID_REQUEST", err)
	}
}

func TestNormalizeSubject(t *testing.T) {
	got, err := normalizeSubject("https://www.instagram.com/Some.Brand/")
	if err != nil {
		t.Fatalf("normalizeSubject failed: %v", err)
	}
	if got != "some.brand" {
		t.Errorf("normalizeSubject = %q, want some.brand", got)
	}

	for _, bad := range []string{"", "   ", "has space", "way_too_long_for_an_instagram_username"} {
		if _, err := normalizeSubject(bad); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("normalizeSubject(%q) error = %v, want INVALID_REQUEST", bad, err)
		}
	}
}
