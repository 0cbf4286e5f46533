package follower

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordKey(t *testing.T) {
	require.Equal(t, "alice", Record{Handle: "Alice"}.Key())
	require.Equal(t, "id:42", Record{RawID: "42"}.Key())
	require.Equal(t, "bob", Record{Handle: " BOB ", RawID: "7"}.Key())
	require.Equal(t, "", Record{DisplayName: "No identity"}.Key())
}

func TestRecordLabel(t *testing.T) {
	require.Equal(t, "@alice", Record{Handle: "alice"}.Label())
	require.Equal(t, "id 42", Record{RawID: "42"}.Label())
	require.Equal(t, "unknown", Record{}.Label())
}

func TestDedupe(t *testing.T) {
	in := []Record{
		{Handle: "carol"},
		{Handle: "Alice"},
		{},
		{Handle: "alice", DisplayName: "second alice"},
		{RawID: "9"},
		{RawID: "9"},
	}

	out := Dedupe(in)

	require.Len(t, out, 3)
	require.Equal(t, "carol", out[0].Handle)
	require.Equal(t, "Alice", out[1].Handle)
	require.Equal(t, "9", out[2].RawID)
}

func TestKeySet(t *testing.T) {
	set := KeySet([]Record{{Handle: "Alice"}, {RawID: "5"}, {}})

	require.Len(t, set, 2)
	require.Contains(t, set, "alice")
	require.Contains(t, set, "id:5")
}
