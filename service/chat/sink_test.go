package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelayGating(t *testing.T) {
	e := &eventSink{nodeID: "gw1"}

	// no presence backend: relay unconditionally
	require.True(t, e.needsRelay([]string{"alice"}, ""))

	presence := map[string]string{"alice": "gw1", "bob": "gw2"}
	e.lookup = func(u string) (string, bool, error) {
		n, ok := presence[u]
		return n, ok, nil
	}

	require.False(t, e.needsRelay([]string{"alice"}, ""))        // all local
	require.True(t, e.needsRelay([]string{"alice", "bob"}, ""))  // bob on gw2
	require.False(t, e.needsRelay([]string{"alice", "bob"}, "bob"))
	require.False(t, e.needsRelay([]string{"carol"}, "")) // offline => catch-up

	e.lookup = func(string) (string, bool, error) { return "", false, errors.New("redis down") }
	require.True(t, e.needsRelay([]string{"alice"}, "")) // fail open
}
