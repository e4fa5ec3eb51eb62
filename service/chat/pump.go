package chat

import (
	"context"

	"chatcore/logger"
	"chatcore/service/router"
	"chatcore/tools/errs"
)

// pumpEvents 把订阅队列翻译成 event 帧写给客户端，并推进该用户的投递水位。
// 对单订阅者，队列顺序即会话内 seq 顺序，这里只做搬运不重排。
func (s *Server) pumpEvents(c *Client, sub *router.Subscription) {
	for {
		select {
		case ev := <-sub.Events:
			if ev == nil {
				continue
			}
			if !c.Enqueue(BuildEventFrame(ev)) {
				// 出站队列也满了：整条连接按 Overloaded 处理
				logger.Warnf("[pump] send queue full, dropping conn=%s user=%s", c.ConnID, c.UserID)
				s.router.Unsubscribe(sub)
				c.Close()
				return
			}
			if ev.Seq > 0 {
				// best effort: a lost delivered-mark only means a slightly
				// larger catch-up window on the next reconnect
				if err := s.tracker.MarkDelivered(context.Background(), ev.ConversationID, c.UserID, ev.Seq); err != nil {
					logger.Warnf("[pump] mark delivered user=%s conv=%s seq=%d: %v", c.UserID, ev.ConversationID, ev.Seq, err)
				}
			}
		case <-sub.Done:
			if sub.Dropped() {
				// 溢出被踢：断开接收方连接，由它重连后 catch-up
				c.Enqueue(BuildRejected("", errs.ErrOverloaded))
				c.Close()
			}
			return
		case <-c.Done():
			return
		}
	}
}
