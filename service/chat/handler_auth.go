package chat

import (
	"chatcore/logger"
	"chatcore/module/chat/model"
	"chatcore/service/storage"
	"chatcore/tools/errs"
	"chatcore/tools/security"
)

// authHandler 处理 Unauthenticated → Authenticated 迁移。
// 身份断言来自外部身份服务（JWT 边界），网关自己从不签发凭证。
type authHandler struct{}

func (authHandler) Type() FrameType { return FrameAuth }

func (authHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	participantID, err := security.VerifyIdentity(ctx.S.secOpts, f.Token)
	if err != nil {
		logger.Infof("[auth] verify failed conn=%s: %v", c.ConnID, err)
		c.Enqueue(BuildRejected(f.ReqID, errs.ErrUnauthorized))
		c.Close() // bad credential terminates the connection
		return nil
	}
	if !model.ValidParticipantID(participantID) {
		logger.Infof("[auth] reserved chars in sub conn=%s sub=%q", c.ConnID, participantID)
		c.Enqueue(BuildRejected(f.ReqID, errs.ErrUnauthorized.WithDetail("invalid participant id")))
		c.Close()
		return nil
	}
	c.UserID = participantID
	c.setState(StateAuthenticated)
	if storage.Enabled() {
		if err := storage.PresenceOnline(participantID, ctx.S.cfg.NodeID, ctx.S.cfg.PresenceTTL); err != nil {
			logger.Warnf("[auth] presence online user=%s: %v", participantID, err)
		}
	}
	c.Enqueue(BuildAuthed(f.ReqID, participantID))
	logger.Infof("[auth] conn=%s authenticated as user=%s", c.ConnID, participantID)
	return nil
}
