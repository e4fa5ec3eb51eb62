package log

import (
	"context"
	"testing"

	"chatcore/module/chat/model"
	"chatcore/tools/errs"

	"github.com/stretchr/testify/require"
)

func entry(conv string, seq int64) *model.Message {
	return &model.Message{
		ConversationID: conv,
		Seq:            seq,
		ServerMsgID:    "sid-" + conv + "-" + string(rune('0'+seq)),
		SenderID:       "alice",
		Kind:           model.KindText,
		Payload:        []byte("hello"),
		CreateTime:     1000 + seq,
	}
}

func TestAppendSequential(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Append(ctx, entry("c1", i)))
	}
	tail, err := s.TailSequence(ctx, "c1")
	require.NoError(t, err)
	require.EqualValues(t, 5, tail)
}

func TestAppendOutOfOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	require.NoError(t, s.Append(ctx, entry("c1", 1)))

	err := s.Append(ctx, entry("c1", 3)) // skips 2
	require.ErrorIs(t, err, errs.ErrOutOfOrder)
	require.True(t, errs.IsInvariantViolation(err))

	// the failed append left no trace
	tail, _ := s.TailSequence(ctx, "c1")
	require.EqualValues(t, 1, tail)
}

func TestAppendConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	require.NoError(t, s.Append(ctx, entry("c1", 1)))
	require.NoError(t, s.Append(ctx, entry("c1", 2)))

	err := s.Append(ctx, entry("c1", 2))
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestAppendZeroSeqRejected(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	err := s.Append(ctx, entry("c1", 0))
	require.Error(t, err)
}

func TestReadRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, s.Append(ctx, entry("c1", i)))
	}

	// (3, 7]
	msgs, err := s.ReadRange(ctx, "c1", 3, 7, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		require.EqualValues(t, 4+i, m.Seq)
	}

	// 开区间到尾部，带 limit
	msgs, err = s.ReadRange(ctx, "c1", 0, 0, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.EqualValues(t, 1, msgs[0].Seq)
	require.EqualValues(t, 3, msgs[2].Seq)

	// beyond tail => empty
	msgs, err = s.ReadRange(ctx, "c1", 10, 0, 0)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestConversationsIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Append(ctx, entry("c1", 1)))
	require.NoError(t, s.Append(ctx, entry("c2", 1)))
	require.NoError(t, s.Append(ctx, entry("c2", 2)))

	t1, _ := s.TailSequence(ctx, "c1")
	t2, _ := s.TailSequence(ctx, "c2")
	require.EqualValues(t, 1, t1)
	require.EqualValues(t, 2, t2)
}

func TestConversationMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.GetConversation(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrConversationNotFound)

	conv := &model.Conversation{
		ConversationID: "c1",
		Participants:   []string{"alice", "bob"},
	}
	require.NoError(t, s.PutConversation(ctx, conv))

	got, err := s.GetConversation(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, got.Participants)

	// stored copy is isolated from later caller mutation
	conv.Participants[0] = "mallory"
	got2, _ := s.GetConversation(ctx, "c1")
	require.Equal(t, "alice", got2.Participants[0])
}
