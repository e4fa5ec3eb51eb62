// Package router is the presence router: it maps online participants to live
// subscriptions and fans newly sequenced events out to them. Offline
// participants are never retried here; they catch up from the log on
// reconnect.
package router

import (
	"sync"

	"chatcore/logger"
	"chatcore/module/chat/model"
	"chatcore/tools/ids"
)

// Subscription 把一个参与者身份绑定到一条活连接；随连接销毁，从不持久化。
// Events 是有界队列：溢出即整订阅被踢（Overloaded），绝不反压发送方。
type Subscription struct {
	ID     string
	UserID string
	Events chan *model.Event

	// Done is closed when the subscription leaves the router (disconnect or
	// overflow eviction). Events is never closed: fan-out workers may still
	// hold a reference, and a send on a channel nobody drains is harmless
	// because every send is non-blocking.
	Done chan struct{}

	convs map[string]struct{}

	mu       sync.Mutex
	dropped  bool
	doneOnce sync.Once
}

// Conversations returns the subscribed set (snapshot).
func (s *Subscription) Conversations() []string {
	out := make([]string, 0, len(s.convs))
	for c := range s.convs {
		out = append(out, c)
	}
	return out
}

// Dropped reports whether the router evicted this subscription for overflow.
func (s *Subscription) Dropped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

type Router struct {
	mu     sync.RWMutex
	byConv map[string]map[*Subscription]struct{}

	queueSize int
	fanout    *Fanout
}

func New(queueSize, fanoutWorkers, fanoutQueue int) *Router {
	if queueSize <= 0 {
		queueSize = 512
	}
	r := &Router{
		byConv:    make(map[string]map[*Subscription]struct{}),
		queueSize: queueSize,
	}
	r.fanout = NewFanout(r, fanoutWorkers, fanoutQueue)
	return r
}

// Subscribe 建立 fan-out 绑定；返回的 Subscription 由调用方的连接生命周期持有，
// 断开时必须 Unsubscribe（作用域化获取，网关的 defer 负责）。
func (r *Router) Subscribe(userID string, convIDs []string) *Subscription {
	sub := &Subscription{
		ID:     ids.GenerateString(),
		UserID: userID,
		Events: make(chan *model.Event, r.queueSize),
		Done:   make(chan struct{}),
		convs:  make(map[string]struct{}, len(convIDs)),
	}
	r.mu.Lock()
	for _, cid := range convIDs {
		sub.convs[cid] = struct{}{}
		set := r.byConv[cid]
		if set == nil {
			set = make(map[*Subscription]struct{})
			r.byConv[cid] = set
		}
		set[sub] = struct{}{}
	}
	r.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription from every fan-out target set and
// closes its queue. Idempotent.
func (r *Router) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	for cid := range sub.convs {
		if set, ok := r.byConv[cid]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(r.byConv, cid)
			}
		}
	}
	r.mu.Unlock()
	sub.doneOnce.Do(func() { close(sub.Done) })
}

// drop 溢出踢人：从目标集合摘除并关队列，接收方连接收尾后走 catch-up。
func (r *Router) drop(sub *Subscription) {
	sub.mu.Lock()
	if sub.dropped {
		sub.mu.Unlock()
		return
	}
	sub.dropped = true
	sub.mu.Unlock()

	logger.Warnf("[router] subscriber overloaded, dropping sub=%s user=%s", sub.ID, sub.UserID)
	r.Unsubscribe(sub)
}

// Publish 投递给该会话当前所有订阅者（除 excludeUser），对离线者 fire-and-forget。
// 经由 fanout 单队列入列，保证单订阅者按入列顺序（即 seq 顺序）收事件。
func (r *Router) Publish(convID string, ev *model.Event, excludeUser string) {
	r.mu.RLock()
	set := r.byConv[convID]
	if len(set) == 0 {
		r.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(set))
	for sub := range set {
		if excludeUser != "" && sub.UserID == excludeUser {
			continue
		}
		subs = append(subs, sub)
	}
	r.mu.RUnlock()
	if len(subs) > 0 {
		r.fanout.Broadcast(subs, ev)
	}
}
