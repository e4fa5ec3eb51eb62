package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyIdentity(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	tok, err := Generate(opts, "alice")
	require.NoError(t, err)

	uid, err := VerifyIdentity(opts, tok)
	require.NoError(t, err)
	require.Equal(t, "alice", uid)
}

func TestVerifyIdentityFailures(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	_, err := VerifyIdentity(opts, "garbage")
	require.Error(t, err)

	// wrong secret
	tok, err := Generate(DefaultOptions([]byte("other-secret")), "alice")
	require.NoError(t, err)
	_, err = VerifyIdentity(opts, tok)
	require.Error(t, err)

	// expired
	short := opts
	short.TTL = time.Nanosecond
	tok, err = Generate(short, "alice")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // exp has second resolution
	_, err = VerifyIdentity(opts, tok)
	require.Error(t, err)

	// unsupported alg rejected up front
	bad := opts
	bad.Alg = "RS256"
	_, err = VerifyIdentity(bad, tok)
	require.Error(t, err)
}
