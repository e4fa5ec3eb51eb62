package chat

import (
	"context"
)

// catchUpHandler 重连补拉：返回 (sinceSeq, tail] 的有序片段，条数受服务端上限
// 约束，客户端循环直到返回数 < limit。只读路径，不进会话独占段。
type catchUpHandler struct{}

func (catchUpHandler) Type() FrameType { return FrameCatchUp }

func (catchUpHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	sess, err := ctx.S.sessions.Get(context.Background(), f.ConversationID)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	msgs, err := sess.CatchUp(context.Background(), c.UserID, f.SinceSeq, f.Limit)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	c.Enqueue(BuildBatch(f.ReqID, f.ConversationID, msgs))
	if n := len(msgs); n > 0 {
		_ = ctx.S.tracker.MarkDelivered(context.Background(), f.ConversationID, c.UserID, msgs[n-1].Seq)
	}
	return nil
}
