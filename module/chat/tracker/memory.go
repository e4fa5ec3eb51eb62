package tracker

import (
	"context"
	"sync"
	"time"

	"chatcore/module/chat/model"
)

type memCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]*model.SeqUser // convID|userID
}

func NewMemCursorStore() CursorStore {
	return &memCursorStore{cursors: make(map[string]*model.SeqUser)}
}

func cursorKey(convID, userID string) string { return convID + "|" + userID }

func (s *memCursorStore) Get(_ context.Context, convID, userID string) (*model.SeqUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cursors[cursorKey(convID, userID)]; ok {
		cp := *c
		return &cp, nil
	}
	return &model.SeqUser{ConversationID: convID, UserID: userID}, nil
}

func (s *memCursorStore) upsert(convID, userID string) *model.SeqUser {
	k := cursorKey(convID, userID)
	c, ok := s.cursors[k]
	if !ok {
		c = &model.SeqUser{ConversationID: convID, UserID: userID}
		s.cursors[k] = c
	}
	return c
}

func (s *memCursorStore) MaxDelivered(_ context.Context, convID, userID string, seq int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.upsert(convID, userID)
	if seq > c.DeliveredSeq {
		c.DeliveredSeq = seq
		c.UpdateTime = time.Now().UnixMilli()
	}
	return c.DeliveredSeq, nil
}

func (s *memCursorStore) MaxRead(_ context.Context, convID, userID string, seq int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.upsert(convID, userID)
	if seq <= c.ReadSeq {
		return c.ReadSeq, false, nil
	}
	c.ReadSeq = seq
	// 已读必然已投递
	if seq > c.DeliveredSeq {
		c.DeliveredSeq = seq
	}
	c.UpdateTime = time.Now().UnixMilli()
	return c.ReadSeq, true, nil
}
