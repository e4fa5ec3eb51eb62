package chat

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"chatcore/logger"
	"chatcore/service/router"

	"github.com/gorilla/websocket"
)

// ===== 连接状态机 =====
// Unauthenticated → Authenticated → Subscribed → Closed

type ConnState int32

const (
	StateUnauthenticated ConnState = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

const writeWait = 10 * time.Second

// Client represents a user session connected to the gateway.
// A single user may have multiple connections, each maintained separately.
type Client struct {
	ConnID string
	UserID string          // determined after authentication
	WS     *websocket.Conn // nil in tests: replies stay in Send
	Send   chan []byte     // outbound queue, drained by one writer goroutine

	state atomic.Int32

	mu  sync.Mutex
	sub *router.Subscription // active subscription, nil before subscribe

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) State() ConnState      { return ConnState(c.state.Load()) }
func (c *Client) setState(s ConnState)  { c.state.Store(int32(s)) }
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Subscription() *router.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub
}

func (c *Client) setSubscription(sub *router.Subscription) (old *router.Subscription) {
	c.mu.Lock()
	old = c.sub
	c.sub = sub
	c.mu.Unlock()
	return old
}

// Enqueue serializes a frame onto the outbound queue without blocking.
// A full queue means the peer is not draining; the caller decides whether
// that warrants dropping the connection.
func (c *Client) Enqueue(f *Frame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		logger.Errorf("[client] marshal frame conn=%s: %v", c.ConnID, err)
		return true
	}
	select {
	case c.Send <- data:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close 标记关闭并唤醒写协程；读循环看到状态后退出并收尾。幂等。
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.done)
	})
}

// writePump 唯一的写者：把 Send 队列刷到 WebSocket。退出时关闭底层连接。
func (c *Client) writePump() {
	defer func() {
		if c.WS != nil {
			_ = c.WS.Close()
		}
	}()
	for {
		select {
		case data := <-c.Send:
			if c.WS == nil {
				continue
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[client] write err conn=%s user=%s: %v", c.ConnID, c.UserID, err)
				c.Close()
				return
			}
		case <-c.done:
			// drain what we can within one deadline, then go
			for {
				select {
				case data := <-c.Send:
					if c.WS != nil {
						_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
						_ = c.WS.WriteMessage(websocket.TextMessage, data)
					}
				default:
					return
				}
			}
		}
	}
}
