package chat

import (
	"context"

	"chatcore/module/chat/model"
)

// createGroupHandler 显式建群；建群者自动入成员表，回执策略可覆盖默认值。
type createGroupHandler struct{}

func (createGroupHandler) Type() FrameType { return FrameCreateGroup }

func (createGroupHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	sess, err := ctx.S.sessions.CreateGroup(context.Background(), c.UserID, f.Members, f.ReceiptsEnabled)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	conv := sess.Conversation()
	c.Enqueue(&Frame{Type: FrameCreated, ReqID: f.ReqID, ConversationID: conv.ConversationID})
	return nil
}

// memberHandler 群成员变更：与消息同日志定序，结果作为 MembershipEvent 推给
// 在线成员。非成员发起 NotAuthorized；重复加/删 AlreadyMember/NotMember。
type memberHandler struct {
	op string // model.MemberAdd | model.MemberRemove
}

func (h memberHandler) Type() FrameType {
	if h.op == model.MemberAdd {
		return FrameAddMember
	}
	return FrameRemoveMember
}

func (h memberHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	sess, err := ctx.S.sessions.Get(context.Background(), f.ConversationID)
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	var m *model.Message
	if h.op == model.MemberAdd {
		m, err = sess.AddParticipant(context.Background(), c.UserID, f.UserID)
	} else {
		m, err = sess.RemoveParticipant(context.Background(), c.UserID, f.UserID)
	}
	if err != nil {
		c.Enqueue(BuildRejected(f.ReqID, err))
		return nil
	}
	c.Enqueue(BuildAccepted(f.ReqID, f.ConversationID, m.Seq))
	return nil
}

// pingHandler 心跳：刷新 presence TTL 并回 pong。
type pingHandler struct{}

func (pingHandler) Type() FrameType { return FramePing }

func (pingHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	ctx.S.refreshPresence(c)
	c.Enqueue(&Frame{Type: FramePong, ReqID: f.ReqID})
	return nil
}
