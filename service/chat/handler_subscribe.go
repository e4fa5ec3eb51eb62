package chat

import (
	"context"

	"chatcore/logger"
	"chatcore/tools/errs"
	"chatcore/tools/safe"
)

// subscribeHandler 建立 fan-out 绑定并启动该订阅的事件泵。
// 只授予用户确为成员的会话；重复 subscribe 整体替换旧绑定。
type subscribeHandler struct{}

func (subscribeHandler) Type() FrameType { return FrameSubscribe }

func (subscribeHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	if len(f.ConversationIDs) == 0 {
		c.Enqueue(BuildRejected(f.ReqID, errs.ErrConversationNotFound))
		return nil
	}

	granted := make([]string, 0, len(f.ConversationIDs))
	for _, cid := range f.ConversationIDs {
		sess, err := ctx.S.sessions.Get(context.Background(), cid)
		if err != nil {
			continue
		}
		if !sess.Conversation().HasParticipant(c.UserID) {
			continue
		}
		granted = append(granted, cid)
	}
	if len(granted) == 0 {
		c.Enqueue(BuildRejected(f.ReqID, errs.ErrNotAuthorized))
		return nil
	}

	sub := ctx.S.router.Subscribe(c.UserID, granted)
	if old := c.setSubscription(sub); old != nil {
		ctx.S.router.Unsubscribe(old)
	}
	c.setState(StateSubscribed)

	safe.SafeGo(func() { ctx.S.pumpEvents(c, sub) })

	c.Enqueue(BuildSubscribed(f.ReqID, granted))
	logger.Infof("[subscribe] user=%s conn=%s convs=%d", c.UserID, c.ConnID, len(granted))
	return nil
}
