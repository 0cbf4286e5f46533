package follower

import "context"

// Source fetches follower data for a subject from an external provider.
//
// FetchFollowers returns up to maxCount records in provider order. That
// order is assumed, not guaranteed, to be most-recently-followed first.
//
// Implementations classify failures at their origin: SOURCE_UNAVAILABLE for
// network, timeout, auth and malformed responses, SUBJECT_NOT_FOUND for
// missing or inaccessible profiles.
type Source interface {
	FetchFollowers(ctx context.Context, subject string, maxCount int) ([]Record, error)
	FetchFollowerCount(ctx context.Context, subject string) (int, error)
}
