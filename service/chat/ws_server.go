package chat

import (
	"net"
	"net/http"
	"time"

	"chatcore/logger"
	"chatcore/service/storage"
	"chatcore/tools/errs"
	"chatcore/tools/ids"
	"chatcore/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	pongWait       = 75 * time.Second
	maxFrameLength = 1 << 20
)

// Register mounts the gateway routes.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/ws", s.HandleWS)
}

// HandleWS ===== WebSocket 接入 =====
// 每连接：一个写协程（writePump）+ 本协程做读循环；handler 都在读循环内
// 同步执行，所以断开不会打断一个已经进入会话独占段的 send。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, s.cfg.SendQueueSize)
	safe.SafeGo(client.writePump)
	logger.Infof("[ws] connected conn=%s remote=%s", client.ConnID, ws.RemoteAddr())

	ws.SetReadLimit(maxFrameLength)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		s.refreshPresence(client)
		return nil
	})

	s.readLoop(client, ws)
	s.teardown(client)
}

func (s *Server) readLoop(client *Client, ws *websocket.Conn) {
	for client.State() != StateClosed {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s: %v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s: %v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s: %v", client.ConnID, rerr)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		s.dispatch(client, frame)
	}
}

// dispatch 执行连接状态机的准入检查后调用对应 handler。
// Unauthenticated 状态下除 auth 外的任何帧 => Unauthorized 并断开。
func (s *Server) dispatch(client *Client, frame *Frame) {
	if client.State() == StateUnauthenticated && frame.Type != FrameAuth {
		client.Enqueue(BuildRejected(frame.ReqID, errs.ErrUnauthorized))
		client.Close()
		return
	}
	h := s.disp.Get(frame.Type)
	if h == nil {
		logger.Infof("[ws] no handler conn=%s type=%s", client.ConnID, frame.Type)
		client.Enqueue(BuildRejected(frame.ReqID, errs.ErrUnauthorized.WithDetail("unknown frame type")))
		return
	}
	if err := h.Handle(&Context{S: s}, frame, client); err != nil {
		logger.Errorf("[ws] handler err conn=%s type=%s: %v", client.ConnID, frame.Type, err)
	}
}

// teardown 断连收尾：释放订阅、presence 下线。光标状态原样保留，
// 它就是下次连接的续传点。
func (s *Server) teardown(client *Client) {
	if sub := client.setSubscription(nil); sub != nil {
		s.router.Unsubscribe(sub)
	}
	if client.UserID != "" && storage.Enabled() {
		if err := storage.PresenceOffline(client.UserID); err != nil {
			logger.Warnf("[ws] presence offline user=%s: %v", client.UserID, err)
		}
	}
	client.Close()
	logger.Infof("[ws] closed conn=%s user=%s", client.ConnID, client.UserID)
}

func (s *Server) refreshPresence(c *Client) {
	if c.UserID == "" || !storage.Enabled() {
		return
	}
	if err := storage.PresenceOnline(c.UserID, s.cfg.NodeID, s.cfg.PresenceTTL); err != nil {
		logger.Warnf("[ws] presence refresh user=%s: %v", c.UserID, err)
	}
}
