package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeErrorIs(t *testing.T) {
	require.ErrorIs(t, ErrNotAuthorized, ErrNotAuthorized)

	// detail copies and fmt wrapping keep the identity
	withDetail := ErrNotAuthorized.WrapMsg("send", "user", "alice")
	require.ErrorIs(t, withDetail, ErrNotAuthorized)
	require.Contains(t, withDetail.Error(), "user=alice")

	wrapped := fmt.Errorf("handler: %w", withDetail)
	require.ErrorIs(t, wrapped, ErrNotAuthorized)
	require.Equal(t, ErrNotAuthorized.Code, Code(wrapped))

	require.NotErrorIs(t, withDetail, ErrUnauthorized)
	require.Zero(t, Code(errors.New("plain")))
}

func TestWithDetailLeavesBaseClean(t *testing.T) {
	_ = ErrConflict.WithDetail("seq=3")
	require.Empty(t, ErrConflict.Detail)
}

func TestInvariantViolation(t *testing.T) {
	require.True(t, IsInvariantViolation(ErrOutOfOrder))
	require.True(t, IsInvariantViolation(ErrConflict.WrapMsg("append")))
	require.False(t, IsInvariantViolation(ErrOverloaded))
	require.False(t, IsInvariantViolation(errors.New("plain")))
}
