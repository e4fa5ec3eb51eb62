// Package natsx relays sequenced events between gateway nodes over NATS so a
// subscriber connected elsewhere still gets fan-out. Per-conversation order is
// preserved because each conversation has a single publishing node (the one
// owning its session) and NATS keeps per-publisher subject order.
package natsx

import (
	"encoding/json"
	"strings"
	"time"

	"chatcore/logger"
	"chatcore/module/chat/model"
	"chatcore/tools/errs"

	"github.com/nats-io/nats.go"
)

const (
	subjectEvents = "chat.evt"
	hdrOrigin     = "Chat-Origin"
	hdrExclude    = "Chat-Exclude"
)

type Config struct {
	Servers       []string
	NodeID        string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type Relay struct {
	nc     *nats.Conn
	nodeID string
	sub    *nats.Subscription
}

func Dial(cfg Config) (*Relay, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name("chatcore-" + cfg.NodeID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect")
	}
	return &Relay{nc: nc, nodeID: cfg.NodeID}, nil
}

// Broadcast 把本节点定序的事件广播给所有节点（含 exclude 传递）。
func (r *Relay) Broadcast(ev *model.Event, excludeUser string) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Errorf("[natsx] marshal event: %v", err)
		return
	}
	msg := nats.NewMsg(subjectEvents)
	msg.Header.Set(hdrOrigin, r.nodeID)
	if excludeUser != "" {
		msg.Header.Set(hdrExclude, excludeUser)
	}
	msg.Data = data
	if err := r.nc.PublishMsg(msg); err != nil {
		logger.Errorf("[natsx] publish: %v", err)
	}
}

// Consume 订阅其他节点的事件；自己发出的（Origin==nodeID）跳过，防回环。
func (r *Relay) Consume(fn func(ev *model.Event, excludeUser string)) error {
	sub, err := r.nc.Subscribe(subjectEvents, func(msg *nats.Msg) {
		if msg.Header.Get(hdrOrigin) == r.nodeID {
			return
		}
		var ev model.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Errorf("[natsx] bad event payload: %v", err)
			return
		}
		fn(&ev, msg.Header.Get(hdrExclude))
	})
	if err != nil {
		return errs.WrapMsg(err, "nats subscribe", "subject", subjectEvents)
	}
	r.sub = sub
	return nil
}

func (r *Relay) Close() {
	if r == nil || r.nc == nil {
		return
	}
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
	}
	r.nc.Close()
}
