package chat

import (
	"context"

	"chatcore/logger"
	"chatcore/tools/errs"
)

// sendHandler 定序入口：Gateway 校验后交给会话独占段跑
// Sequencer → Log append → Tracker 三步。失败即整体失败，无部分提交。
type sendHandler struct{}

func (sendHandler) Type() FrameType { return FrameSend }

func (sendHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	sess, err := ctx.S.sessions.Resolve(context.Background(), f.ConversationID, c.UserID)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	m, err := sess.Send(context.Background(), c.UserID, f.Kind, f.Payload, f.Attachment)
	if err != nil {
		if errs.IsInvariantViolation(err) {
			// 对行为良好的客户端这永远不该发生；记成一致性违规
			logger.Errorf("[send] invariant violation user=%s conv=%s: %v", c.UserID, f.ConversationID, err)
		}
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	c.Enqueue(BuildAccepted(f.ReqID, m.ConversationID, m.Seq))
	return nil
}
