package session

import (
	"context"
	"errors"
	"sync"
	"time"

	logstore "chatcore/module/chat/log"
	"chatcore/module/chat/model"
	"chatcore/module/chat/tracker"
	"chatcore/tools/errs"
)

// ReceiptPolicy 回执默认值：单聊开、群聊关（建群时可覆盖）。
type ReceiptPolicy struct {
	Direct bool
	Group  bool
}

// Manager 是会话注册表：每个会话一个 Session 单例，按需从存储加载。
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store   logstore.Store
	tracker *tracker.Tracker
	sink    Publisher
	limits  Limits
	policy  ReceiptPolicy
}

func NewManager(store logstore.Store, trk *tracker.Tracker, sink Publisher, limits Limits, policy ReceiptPolicy) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		tracker:  trk,
		sink:     sink,
		limits:   limits,
		policy:   policy,
	}
}

// Get 返回已有会话的 Session；不存在 => ConversationNotFound。
func (m *Manager) Get(ctx context.Context, convID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[convID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	// 存储加载放在注册表锁外（可能是慢 I/O）
	conv, err := m.store.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	return m.intern(conv), nil
}

// intern 保证同一会话只有一个 Session 实例（独占段的载体）。
func (m *Manager) intern(conv *model.Conversation) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[conv.ConversationID]; ok {
		return s
	}
	s := newSession(conv, m.store, m.tracker, m.sink, m.limits)
	m.sessions[conv.ConversationID] = s
	return s
}

// GetOrCreateDirect loads the canonical direct conversation for the sender
// and target, creating it on first use ("created on first message").
func (m *Manager) GetOrCreateDirect(ctx context.Context, a, b string) (*Session, error) {
	if a == b || !model.ValidParticipantID(a) || !model.ValidParticipantID(b) {
		return nil, errs.ErrInvalidParticipant.WrapMsg("direct conversation needs two distinct valid users", "a", a, "b", b)
	}
	convID := model.DirectConvID(a, b)
	if s, err := m.Get(ctx, convID); err == nil {
		return s, nil
	} else if !errors.Is(err, errs.ErrConversationNotFound) {
		return nil, err
	}
	conv := &model.Conversation{
		ConversationID:  convID,
		IsGroup:         false,
		Participants:    []string{a, b},
		ReceiptsEnabled: m.policy.Direct,
		CreateTime:      time.Now(),
	}
	if err := m.store.PutConversation(ctx, conv); err != nil {
		return nil, err
	}
	return m.intern(conv), nil
}

// CreateGroup 显式建群；creator 自动入成员表。
func (m *Manager) CreateGroup(ctx context.Context, creator string, members []string, receiptsEnabled *bool) (*Session, error) {
	if !model.ValidParticipantID(creator) {
		return nil, errs.ErrInvalidParticipant.WrapMsg("create group", "creator", creator)
	}
	set := map[string]struct{}{creator: {}}
	parts := []string{creator}
	for _, u := range members {
		if u == "" {
			continue
		}
		if !model.ValidParticipantID(u) {
			return nil, errs.ErrInvalidParticipant.WrapMsg("create group", "member", u)
		}
		if _, dup := set[u]; dup {
			continue
		}
		set[u] = struct{}{}
		parts = append(parts, u)
	}
	receipts := m.policy.Group
	if receiptsEnabled != nil {
		receipts = *receiptsEnabled
	}
	conv := &model.Conversation{
		ConversationID:  model.GroupConvID(),
		IsGroup:         true,
		Participants:    parts,
		ReceiptsEnabled: receipts,
		CreateTime:      time.Now(),
	}
	if err := m.store.PutConversation(ctx, conv); err != nil {
		return nil, err
	}
	return m.intern(conv), nil
}

// Resolve finds the session for a send target: existing conversation, or an
// implicitly created direct chat when convID follows the p2p scheme and the
// sender is one of the pair.
func (m *Manager) Resolve(ctx context.Context, convID, senderID string) (*Session, error) {
	s, err := m.Get(ctx, convID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, errs.ErrConversationNotFound) {
		return nil, err
	}
	a, b, ok := model.DirectPeers(convID)
	if !ok || (senderID != a && senderID != b) {
		return nil, err
	}
	return m.GetOrCreateDirect(ctx, a, b)
}
