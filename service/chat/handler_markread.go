package chat

import (
	"context"

	"chatcore/tools/errs"
)

// markReadHandler 推进已读水位；光标前进且会话开回执时，把 ReceiptEvent
// fan-out 给其他在线成员（读者自己除外）。陈旧 ack 是 no-op。
type markReadHandler struct{}

func (markReadHandler) Type() FrameType { return FrameMarkRead }

func (markReadHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	sess, err := ctx.S.sessions.Get(context.Background(), f.ConversationID)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	conv := sess.Conversation()
	if !conv.HasParticipant(c.UserID) {
		c.Enqueue(BuildRejected(f.ReqID, errs.ErrNotAuthorized))
		return nil
	}
	ev, err := ctx.S.tracker.MarkRead(context.Background(), conv, c.UserID, f.Seq)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	c.Enqueue(BuildAck(f.ReqID))
	if ev != nil {
		ctx.S.sink.Publish(conv, ev, c.UserID)
	}
	return nil
}

// unreadHandler 查询未读数（会话尾 - 已读水位）。
type unreadHandler struct{}

func (unreadHandler) Type() FrameType { return FrameUnread }

func (unreadHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	sess, err := ctx.S.sessions.Get(context.Background(), f.ConversationID)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	if !sess.Conversation().HasParticipant(c.UserID) {
		c.Enqueue(BuildRejected(f.ReqID, errs.ErrNotAuthorized))
		return nil
	}
	n, err := ctx.S.tracker.UnreadCount(context.Background(), f.ConversationID, c.UserID)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	c.Enqueue(&Frame{Type: FrameAck, ReqID: f.ReqID, ConversationID: f.ConversationID, Unread: n})
	return nil
}
