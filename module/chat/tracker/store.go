package tracker

import (
	"context"

	"chatcore/module/chat/model"
)

// CursorStore 按 (conversation, participant) 分片的光标存储。
// 两个推进操作都是 $max 语义：只升不降，天然吸收乱序 ack。
type CursorStore interface {
	Get(ctx context.Context, convID, userID string) (*model.SeqUser, error) // absent => zero cursor

	// MaxDelivered bumps delivered_seq to max(current, seq) and returns the
	// value after the update.
	MaxDelivered(ctx context.Context, convID, userID string, seq int64) (int64, error)

	// MaxRead bumps read_seq likewise; advanced reports whether the cursor
	// actually moved (false for stale acks).
	MaxRead(ctx context.Context, convID, userID string, seq int64) (newRead int64, advanced bool, err error)
}
