package chat

import (
	"chatcore/global"
	"chatcore/module/chat/model"
	"chatcore/module/chat/session"
	"chatcore/module/chat/tracker"
	"chatcore/service/natsx"
	"chatcore/service/router"
	"chatcore/service/storage"
	"chatcore/tools/security"
)

// Server wires the gateway: sessions, tracker, presence router, optional
// cross-node relay, and the per-frame-type handler table.
type Server struct {
	cfg      *global.AppConfig
	sessions *session.Manager
	tracker  *tracker.Tracker
	router   *router.Router
	relay    *natsx.Relay // nil => single node
	sink     session.Publisher
	disp     *Dispatcher
	secOpts  security.Options
}

func NewServer(cfg *global.AppConfig, sessions *session.Manager, trk *tracker.Tracker, rt *router.Router, relay *natsx.Relay) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		tracker:  trk,
		router:   rt,
		relay:    relay,
		sink:     NewEventSink(rt, relay, cfg.NodeID),
		disp:     NewDispatcher(),
		secOpts:  security.DefaultOptions(cfg.JwtSecret),
	}
	for _, h := range []Handler{
		authHandler{}, subscribeHandler{}, sendHandler{}, catchUpHandler{},
		markReadHandler{}, unreadHandler{}, createGroupHandler{},
		memberHandler{op: model.MemberAdd}, memberHandler{op: model.MemberRemove},
		pingHandler{},
	} {
		s.disp.Register(h)
	}
	if relay != nil {
		// Events sequenced on other nodes feed the local router only;
		// re-broadcasting them would loop.
		_ = relay.Consume(func(ev *model.Event, excludeUser string) {
			rt.Publish(ev.ConversationID, ev, excludeUser)
		})
	}
	return s
}

func (s *Server) Disp() *Dispatcher          { return s.disp }
func (s *Server) Sessions() *session.Manager { return s.sessions }
func (s *Server) Tracker() *tracker.Tracker  { return s.tracker }
func (s *Server) Router() *router.Router     { return s.router }

// NewEventSink is what conversation sessions publish into: local fan-out plus
// the cross-node relay when configured. Built before the Server so the
// session manager can be handed to NewServer already wired.
func NewEventSink(rt *router.Router, relay *natsx.Relay, nodeID string) session.Publisher {
	s := &eventSink{router: rt, relay: relay, nodeID: nodeID}
	if storage.Enabled() {
		s.lookup = storage.PresenceLookup
	}
	return s
}

type eventSink struct {
	router *router.Router
	relay  *natsx.Relay
	nodeID string

	// presence lookup; nil when no Redis backend => relay unconditionally
	lookup func(user string) (nodeID string, online bool, err error)
}

func (e *eventSink) Publish(conv *model.Conversation, ev *model.Event, excludeUser string) {
	e.router.Publish(conv.ConversationID, ev, excludeUser)
	if e.relay == nil {
		return
	}
	if !e.needsRelay(conv.Participants, excludeUser) {
		return
	}
	e.relay.Broadcast(ev, excludeUser)
}

// needsRelay 用 presence 决定本地投递还是跨节点广播：只有存在别的节点上
// 在线的接收者才上 relay。查不到宁可多发（fail open）；离线者走 catch-up。
func (e *eventSink) needsRelay(participants []string, excludeUser string) bool {
	if e.lookup == nil {
		return true
	}
	for _, p := range participants {
		if p == excludeUser {
			continue
		}
		node, online, err := e.lookup(p)
		if err != nil {
			return true
		}
		if online && node != e.nodeID {
			return true
		}
	}
	return false
}
