// Package tracker keeps the per-(conversation, participant) delivery and read
// cursors and derives unread counts and read receipts from them.
package tracker

import (
	"context"

	logstore "chatcore/module/chat/log"
	"chatcore/module/chat/model"
)

type Tracker struct {
	store CursorStore
	log   logstore.Store
}

func New(store CursorStore, log logstore.Store) *Tracker {
	return &Tracker{store: store, log: log}
}

// MarkDelivered 推进投递水位（monotonic max，旧 seq 是 no-op）。
func (t *Tracker) MarkDelivered(ctx context.Context, convID, userID string, seq int64) error {
	_, err := t.store.MaxDelivered(ctx, convID, userID, seq)
	return err
}

// MarkRead 推进已读水位。只有光标真的前进、且会话开了回执
// （单聊默认开，群聊默认关）才产生回执事件，返回给调用方去 fan-out。
func (t *Tracker) MarkRead(ctx context.Context, conv *model.Conversation, userID string, seq int64) (*model.Event, error) {
	newRead, advanced, err := t.store.MaxRead(ctx, conv.ConversationID, userID, seq)
	if err != nil {
		return nil, err
	}
	if !advanced || !conv.ReceiptsEnabled {
		return nil, nil
	}
	return model.NewReceiptEvent(conv.ConversationID, userID, newRead), nil
}

// MarkSent 发送方自己的消息：投递与已读水位一起抬，不产生回执。
func (t *Tracker) MarkSent(ctx context.Context, convID, senderID string, seq int64) error {
	if _, _, err := t.store.MaxRead(ctx, convID, senderID, seq); err != nil {
		return err
	}
	return nil
}

// UnreadCount = 会话尾 seq - read_seq，负值夹到0（光标可能领先于陈旧的尾读取）。
func (t *Tracker) UnreadCount(ctx context.Context, convID, userID string) (int64, error) {
	tail, err := t.log.TailSequence(ctx, convID)
	if err != nil {
		return 0, err
	}
	cur, err := t.store.Get(ctx, convID, userID)
	if err != nil {
		return 0, err
	}
	unread := tail - cur.ReadSeq
	if unread < 0 {
		unread = 0
	}
	return unread, nil
}

// Cursor returns the current watermark pair; reconnect resumption reads
// DeliveredSeq from here.
func (t *Tracker) Cursor(ctx context.Context, convID, userID string) (*model.SeqUser, error) {
	return t.store.Get(ctx, convID, userID)
}
