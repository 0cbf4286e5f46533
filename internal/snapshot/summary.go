package snapshot

import "time"

// Summary represents a snapshot's metadata without the follower records.
// Used for browse operations to reduce data transfer.
type Summary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`

	// CapturedAt is the capture time in both encodings: RFC 3339 and unix seconds
	CapturedAt     string `json:"captured_at"`
	CapturedAtUnix int64  `json:"captured_at_unix"`

	FollowerCount int      `json:"follower_count"`
	Fidelity      Fidelity `json:"fidelity"`

	// RecordCount is the number of stored follower records (0 for count-only)
	RecordCount int `json:"record_count"`
}

// ToSummary converts a Snapshot to a Summary by stripping the records.
func (s *Snapshot) ToSummary() Summary {
	return Summary{
		ID:             s.ID,
		Subject:        s.Subject,
		CapturedAt:     s.CapturedAt.UTC().Format(time.RFC3339),
		CapturedAtUnix: s.CapturedAt.Unix(),
		FollowerCount:  s.FollowerCount,
		Fidelity:       s.Fidelity,
		RecordCount:    len(s.Followers),
	}
}

// SubjectInfo describes a subject that has at least one stored snapshot.
type SubjectInfo struct {
	Subject   string `json:"subject"`
	Snapshots int    `json:"snapshots"`

	// LatestAt is the RFC 3339 capture time of the newest snapshot
	LatestAt string `json:"latest_at"`
}
