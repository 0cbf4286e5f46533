package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/snapshot"
)

func TestCapture(t *testing.T) {
	store := newTestStore(t, testNow)

	out, err := Capture(context.Background(), store, &fakeSource{count: 77}, CaptureInput{Subject: "Brand", Now: testNow})
	require.NoError(t, err)
	require.Equal(t, "brand", out.Snapshot.Subject)
	require.Equal(t, snapshot.FidelityCountOnly, out.Snapshot.Fidelity)
	require.Equal(t, 77, out.Snapshot.FollowerCount)
	require.NotEmpty(t, out.Snapshot.ID)

	out, err = Capture(context.Background(), store, &fakeSource{followers: recs("a", "b")}, CaptureInput{
		Subject: "brand",
		Full:    true,
		Now:     testNow.Add(-1),
	})
	require.NoError(t, err)
	require.Equal(t, snapshot.FidelityFull, out.Snapshot.Fidelity)
	require.Equal(t, 2, out.Snapshot.RecordCount)
}

func TestCapture_DuplicateTimestampIsPersistenceError(t *testing.T) {
	store := newTestStore(t, testNow)
	src := &fakeSource{count: 1}

	_, err := Capture(context.Background(), store, src, CaptureInput{Subject: "brand", Now: testNow})
	require.NoError(t, err)

	_, err = Capture(context.Background(), store, src, CaptureInput{Subject: "brand", Now: testNow})
	require.True(t, errors.Is(err, errors.ErrPersistence))
}
