package follower

import "strings"

// Record is a normalized follower identity as returned by a Source.
// Records are immutable once fetched.
type Record struct {
	// Handle is the account username. Comparison is case-insensitive.
	Handle string `json:"handle,omitempty"`

	// DisplayName is the optional full name shown on the profile
	DisplayName string `json:"display_name,omitempty"`

	IsPrivate  bool `json:"is_private,omitempty"`
	IsVerified bool `json:"is_verified,omitempty"`

	// AvatarURL is the optional profile picture URL
	AvatarURL string `json:"avatar_url,omitempty"`

	// RawID is the provider's opaque account id, used as identity when
	// Handle is absent.
	RawID string `json:"raw_id,omitempty"`
}

// Key returns the identity used for set comparison: the lowercased handle,
// or "id:<raw id>" when there is no handle. Empty when neither is known.
func (r Record) Key() string {
	if h := strings.ToLower(strings.TrimSpace(r.Handle)); h != "" {
		return h
	}
	if id := strings.TrimSpace(r.RawID); id != "" {
		return "id:" + id
	}
	return ""
}

// Label returns a human-readable identity, "@handle" when available.
func (r Record) Label() string {
	if r.Handle != "" {
		return "@" + r.Handle
	}
	if r.RawID != "" {
		return "id " + r.RawID
	}
	return "unknown"
}

// Dedupe returns records with duplicate or empty keys removed, keeping the
// first occurrence and the original order.
func Dedupe(records []Record) []Record {
	seen := make(map[string]bool, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// KeySet builds the identity set of records.
func KeySet(records []Record) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		if k := r.Key(); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
