package tracker

import (
	"context"
	"testing"

	logstore "chatcore/module/chat/log"
	"chatcore/module/chat/model"

	"github.com/stretchr/testify/require"
)

func seedLog(t *testing.T, s logstore.Store, conv string, n int64) {
	t.Helper()
	for i := int64(1); i <= n; i++ {
		require.NoError(t, s.Append(context.Background(), &model.Message{
			ConversationID: conv,
			Seq:            i,
			ServerMsgID:    "sid",
			SenderID:       "alice",
			Kind:           model.KindText,
			Payload:        []byte("m"),
		}))
	}
}

func TestDeliveredMonotonic(t *testing.T) {
	ctx := context.Background()
	trk := New(NewMemCursorStore(), logstore.NewMemStore())

	require.NoError(t, trk.MarkDelivered(ctx, "c1", "bob", 5))
	require.NoError(t, trk.MarkDelivered(ctx, "c1", "bob", 3)) // stale, no-op

	cur, err := trk.Cursor(ctx, "c1", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 5, cur.DeliveredSeq)
}

func TestReadMonotonicAndUnread(t *testing.T) {
	ctx := context.Background()
	ls := logstore.NewMemStore()
	seedLog(t, ls, "c1", 8)
	trk := New(NewMemCursorStore(), ls)

	conv := &model.Conversation{ConversationID: "c1", Participants: []string{"alice", "bob"}, ReceiptsEnabled: true}

	unread, err := trk.UnreadCount(ctx, "c1", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 8, unread)

	ev, err := trk.MarkRead(ctx, conv, "bob", 5)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, model.EventReceipt, ev.Type)
	require.EqualValues(t, 5, ev.Receipt.ReadSeq)

	unread, err = trk.UnreadCount(ctx, "c1", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 3, unread)

	// stale mark-read: cursor holds, no receipt
	ev, err = trk.MarkRead(ctx, conv, "bob", 3)
	require.NoError(t, err)
	require.Nil(t, ev)

	cur, _ := trk.Cursor(ctx, "c1", "bob")
	require.EqualValues(t, 5, cur.ReadSeq)
}

func TestReadImpliesDelivered(t *testing.T) {
	ctx := context.Background()
	trk := New(NewMemCursorStore(), logstore.NewMemStore())
	conv := &model.Conversation{ConversationID: "c1", ReceiptsEnabled: true}

	_, err := trk.MarkRead(ctx, conv, "bob", 4)
	require.NoError(t, err)

	cur, _ := trk.Cursor(ctx, "c1", "bob")
	require.EqualValues(t, 4, cur.DeliveredSeq)
	require.EqualValues(t, 4, cur.ReadSeq)
}

func TestReceiptsDisabledForGroups(t *testing.T) {
	ctx := context.Background()
	trk := New(NewMemCursorStore(), logstore.NewMemStore())
	conv := &model.Conversation{ConversationID: "grp:1", IsGroup: true, ReceiptsEnabled: false}

	ev, err := trk.MarkRead(ctx, conv, "bob", 2)
	require.NoError(t, err)
	require.Nil(t, ev) // cursor still advanced, silently

	cur, _ := trk.Cursor(ctx, "grp:1", "bob")
	require.EqualValues(t, 2, cur.ReadSeq)
}

func TestMarkSentNoReceipt(t *testing.T) {
	ctx := context.Background()
	ls := logstore.NewMemStore()
	seedLog(t, ls, "c1", 3)
	trk := New(NewMemCursorStore(), ls)

	require.NoError(t, trk.MarkSent(ctx, "c1", "alice", 3))

	cur, _ := trk.Cursor(ctx, "c1", "alice")
	require.EqualValues(t, 3, cur.DeliveredSeq)
	require.EqualValues(t, 3, cur.ReadSeq)

	unread, err := trk.UnreadCount(ctx, "c1", "alice")
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestCursorsIndependentPerUser(t *testing.T) {
	ctx := context.Background()
	trk := New(NewMemCursorStore(), logstore.NewMemStore())
	conv := &model.Conversation{ConversationID: "c1", ReceiptsEnabled: true}

	_, err := trk.MarkRead(ctx, conv, "alice", 7)
	require.NoError(t, err)
	require.NoError(t, trk.MarkDelivered(ctx, "c1", "bob", 2))

	a, _ := trk.Cursor(ctx, "c1", "alice")
	b, _ := trk.Cursor(ctx, "c1", "bob")
	require.EqualValues(t, 7, a.ReadSeq)
	require.EqualValues(t, 2, b.DeliveredSeq)
	require.Zero(t, b.ReadSeq)
}
