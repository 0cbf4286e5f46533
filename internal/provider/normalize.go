package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
)

// envelope is the outer shape shared by every provider response.
type envelope struct {
	Message *string         `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type rawFollower struct {
	Username      string          `json:"username"`
	FullName      string          `json:"full_name"`
	IsPrivate     bool            `json:"is_private"`
	IsVerified    bool            `json:"is_verified"`
	ProfilePicURL string          `json:"profile_pic_url"`
	ID            json.RawMessage `json:"id"`
}

// ParseFollowers normalizes a followers response. The only accepted shape
// is {"data": {"items": [...]}}; anything else is classified as an error.
// Items with neither a username nor an id are dropped.
func ParseFollowers(body []byte, subject string) ([]follower.Record, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var data struct {
		Items *[]rawFollower `json:"items"`
	}
	if len(env.Data) > 0 && !isNull(env.Data) {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, errors.NewSourceUnavailable("provider returned an unrecognized followers payload", err)
		}
	}
	if data.Items == nil {
		return nil, classifyEnvelope(env, subject, "followers response has no data.items")
	}

	records := make([]follower.Record, 0, len(*data.Items))
	for _, it := range *data.Items {
		r := follower.Record{
			Handle:      strings.TrimSpace(it.Username),
			DisplayName: strings.TrimSpace(it.FullName),
			IsPrivate:   it.IsPrivate,
			IsVerified:  it.IsVerified,
			AvatarURL:   it.ProfilePicURL,
			RawID:       rawID(it.ID),
		}
		if r.Key() == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// ParseFollowerCount normalizes a profile info response, reading
// data.follower_count.
func ParseFollowerCount(body []byte, subject string) (int, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return 0, err
	}

	var data struct {
		FollowerCount *float64 `json:"follower_count"`
	}
	if len(env.Data) > 0 && !isNull(env.Data) {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return 0, errors.NewSourceUnavailable("provider returned an unrecognized profile payload", err)
		}
	}
	if data.FollowerCount == nil {
		return 0, classifyEnvelope(env, subject, "profile response has no data.follower_count")
	}

	n := *data.FollowerCount
	if n < 0 || n != math.Trunc(n) {
		return 0, errors.NewSourceUnavailable(fmt.Sprintf("provider returned invalid follower count %v", n), nil)
	}
	return int(n), nil
}

func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, errors.NewSourceUnavailable("provider returned malformed JSON", err)
	}
	return env, nil
}

// classifyEnvelope turns a response without the expected data into an
// error, using the provider's message when there is one.
func classifyEnvelope(env envelope, subject, fallback string) error {
	if env.Message != nil && *env.Message != "" {
		return classifyMessage(*env.Message, subject)
	}
	if len(env.Error) > 0 && !isNull(env.Error) {
		return errors.NewSourceUnavailable("provider reported an error", fmt.Errorf("%s", env.Error))
	}
	return errors.NewSourceUnavailable("provider returned an unrecognized response", fmt.Errorf("%s", fallback))
}

// classifyMessage maps a provider {"message": ...} body to an error.
func classifyMessage(msg, subject string) error {
	lower := strings.ToLower(msg)
	cause := fmt.Errorf("provider message: %s", msg)
	switch {
	case strings.Contains(lower, "not subscribed"):
		return errors.NewSourceUnavailable("provider subscription is not active for this API key", cause)
	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "private"):
		return errors.NewSubjectNotFound(subject, cause)
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "quota"), strings.Contains(lower, "too many"):
		return errors.NewSourceUnavailable("provider quota exceeded", cause)
	default:
		return errors.NewSourceUnavailable("provider rejected the request", cause)
	}
}

// rawID renders an id that may be encoded as a JSON string or number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
