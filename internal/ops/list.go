package ops

import (
	"context"

	"github.com/hpungsan/followpick/internal/snapshot"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Subject string // required
	Limit   int    // default: 20, max: 100
	Offset  int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Subject    string             `json:"subject"`
	Items      []snapshot.Summary `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"`
}

// List retrieves snapshot summaries for a subject with pagination.
func List(ctx context.Context, store SnapshotReader, input ListInput) (*ListOutput, error) {
	subject, err := normalizeSubject(input.Subject)
	if err != nil {
		return nil, err
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	summaries, total, err := store.ListBySubject(ctx, subject, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []snapshot.Summary{}
	}

	hasMore := offset+len(summaries) < total

	return &ListOutput{
		Subject: subject,
		Items:   summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
			Total:   total,
		},
		Sort: "captured_at_desc",
	}, nil
}
