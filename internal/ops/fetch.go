package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/snapshot"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string // required

	// IncludeFollowers returns the stored follower records (default: false).
	IncludeFollowers bool
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	snapshot.Summary
	Followers []follower.Record `json:"followers,omitempty"`
}

// Fetch retrieves a single snapshot by id.
func Fetch(ctx context.Context, store SnapshotReader, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	snap, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &FetchOutput{Summary: snap.ToSummary()}
	if input.IncludeFollowers {
		out.Followers = snap.Followers
	}
	return out, nil
}
