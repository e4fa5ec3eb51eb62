package log

import (
	"context"
	"sort"
	"sync"

	"chatcore/module/chat/model"
	"chatcore/tools/errs"
)

// memStore mirrors the Mongo layout in process memory. Durability is the
// process lifetime; everything else behaves identically, which is what the
// session and gateway tests run against.
type memStore struct {
	mu    sync.RWMutex
	convs map[string]*model.Conversation
	bySeq map[string]map[int64]*model.Message
	tails map[string]int64
}

func NewMemStore() Store {
	return &memStore{
		convs: make(map[string]*model.Conversation),
		bySeq: make(map[string]map[int64]*model.Message),
		tails: make(map[string]int64),
	}
}

func (s *memStore) PutConversation(_ context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.ConversationID] = c.Clone()
	return nil
}

func (s *memStore) GetConversation(_ context.Context, convID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[convID]
	if !ok {
		return nil, errs.ErrConversationNotFound.WrapMsg("get", "conv", convID)
	}
	return c.Clone(), nil
}

func (s *memStore) Append(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tail := s.tails[m.ConversationID]
	if _, dup := s.bySeq[m.ConversationID][m.Seq]; dup {
		return errs.ErrConflict.WrapMsg("append", "conv", m.ConversationID, "seq", m.Seq)
	}
	if m.Seq != tail+1 {
		return errs.ErrOutOfOrder.WrapMsg("append", "conv", m.ConversationID, "seq", m.Seq, "tail", tail)
	}

	if s.bySeq[m.ConversationID] == nil {
		s.bySeq[m.ConversationID] = make(map[int64]*model.Message)
	}
	cp := *m
	s.bySeq[m.ConversationID][m.Seq] = &cp
	s.tails[m.ConversationID] = m.Seq
	return nil
}

func (s *memStore) ReadRange(_ context.Context, convID string, fromSeq, toSeq int64, limit int) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.bySeq[convID]
	if toSeq <= 0 {
		toSeq = s.tails[convID]
	}
	var out []*model.Message
	for seq, m := range entries {
		if seq > fromSeq && seq <= toSeq {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) TailSequence(_ context.Context, convID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tails[convID], nil
}
