package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/followpick/internal/follower"
)

func TestValidate(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 40, 0, 0, time.UTC)

	tests := []struct {
		name    string
		snap    *Snapshot
		wantErr bool
	}{
		{
			name: "full with records",
			snap: NewFull("alice", at, []follower.Record{{Handle: "bob"}}),
		},
		{
			name: "full with zero followers",
			snap: NewFull("alice", at, nil),
		},
		{
			name: "count only",
			snap: NewCountOnly("alice", at, 10),
		},
		{
			name:    "full claims followers but has none",
			snap:    &Snapshot{Subject: "alice", CapturedAt: at, FollowerCount: 3, Fidelity: FidelityFull},
			wantErr: true,
		},
		{
			name: "count only with records",
			snap: &Snapshot{
				Subject: "alice", CapturedAt: at, FollowerCount: 1, Fidelity: FidelityCountOnly,
				Followers: []follower.Record{{Handle: "bob"}},
			},
			wantErr: true,
		},
		{
			name:    "unknown fidelity",
			snap:    &Snapshot{Subject: "alice", CapturedAt: at, Fidelity: "partial"},
			wantErr: true,
		},
		{
			name:    "missing subject",
			snap:    NewCountOnly("", at, 1),
			wantErr: true,
		},
		{
			name:    "zero time",
			snap:    NewCountOnly("alice", time.Time{}, 1),
			wantErr: true,
		},
		{
			name:    "negative count",
			snap:    NewCountOnly("alice", at, -1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestToSummary(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 40, 0, 0, time.UTC)
	s := NewFull("alice", at, []follower.Record{{Handle: "bob"}, {Handle: "carol"}})
	s.ID = "01TEST"

	sum := s.ToSummary()

	require.Equal(t, "01TEST", sum.ID)
	require.Equal(t, "2026-03-01T08:40:00Z", sum.CapturedAt)
	require.Equal(t, at.Unix(), sum.CapturedAtUnix)
	require.Equal(t, 2, sum.FollowerCount)
	require.Equal(t, 2, sum.RecordCount)
	require.Equal(t, FidelityFull, sum.Fidelity)
}

func TestAge(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s := NewCountOnly("alice", at, 1)
	require.Equal(t, 90*time.Minute, s.Age(at.Add(90*time.Minute)))
}
