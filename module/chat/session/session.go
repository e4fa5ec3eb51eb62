// Package session owns the per-conversation exclusive section: every send and
// membership change for one conversation is serialized here, so the
// sequencer/log pair never race.
package session

import (
	"context"
	"sync"
	"time"

	"chatcore/logger"
	logstore "chatcore/module/chat/log"
	"chatcore/module/chat/model"
	"chatcore/module/chat/tracker"
	"chatcore/tools/errs"

	"github.com/google/uuid"
)

// Publisher 把定序完成的事件交给 Presence Router fan-out。
// excludeUser 通常是发送者自己（自己的事件走 Accepted 回包，不走 fan-out）。
// conv 快照只在本次调用期间有效，实现方不得跨调用持有。
type Publisher interface {
	Publish(conv *model.Conversation, ev *model.Event, excludeUser string)
}

type Limits struct {
	MaxPayloadLen    int   // 消息 payload 字节上限
	MaxAttachmentLen int64 // 附件 fileSize 上限
	CatchUpMaxBatch  int   // 单次 catch-up 条数上限
}

// Session 聚合一个会话的日志段、序号计数器与成员表。
// mu 是会话的独占临界区：Sequencer 分配 + Append + 发送方光标，三步一体。
type Session struct {
	mu   sync.Mutex
	conv *model.Conversation

	store   logstore.Store
	tracker *tracker.Tracker
	sink    Publisher
	limits  Limits

	// nextSeq is the sequencer counter. 0 means "not recovered": the next
	// allocation re-derives it from the log tail. Never persisted on its own;
	// after a crash or a failed append the log is the only authority.
	nextSeq int64

	lastTS int64 // CreateTime 单调化（同毫秒内多条时 +1）
}

func newSession(conv *model.Conversation, store logstore.Store, trk *tracker.Tracker, sink Publisher, limits Limits) *Session {
	return &Session{conv: conv, store: store, tracker: trk, sink: sink, limits: limits}
}

// Conversation returns a snapshot of the metadata (participants copy).
func (s *Session) Conversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Clone()
}

// nextSequence 只在持有 s.mu 时调用。严格递增、无空洞、从1起步；
// 计数器丢失（首次/上次 append 失败后）时从日志尾重导出。
func (s *Session) nextSequence(ctx context.Context) (int64, error) {
	if s.nextSeq == 0 {
		tail, err := s.store.TailSequence(ctx, s.conv.ConversationID)
		if err != nil {
			return 0, err
		}
		s.nextSeq = tail + 1
	}
	return s.nextSeq, nil
}

// serverNow keeps CreateTime monotonic relative to seq within the session.
func (s *Session) serverNow() int64 {
	now := time.Now().UnixMilli()
	if now <= s.lastTS {
		now = s.lastTS + 1
	}
	s.lastTS = now
	return now
}

func (s *Session) validate(senderID string, kind model.ContentKind, payload []byte, att *model.Attachment) error {
	if !s.conv.HasParticipant(senderID) {
		return errs.ErrNotAuthorized.WrapMsg("send", "user", senderID, "conv", s.conv.ConversationID)
	}
	if !kind.Valid() {
		return errs.ErrPayloadTooLarge.WrapMsg("unknown kind", "kind", string(kind))
	}
	if s.limits.MaxPayloadLen > 0 && len(payload) > s.limits.MaxPayloadLen {
		return errs.ErrPayloadTooLarge.WrapMsg("payload", "len", len(payload))
	}
	if kind.NeedsAttachment() {
		if att == nil || att.StorageRef == "" {
			return errs.ErrPayloadTooLarge.WrapMsg("attachment metadata required", "kind", string(kind))
		}
		if s.limits.MaxAttachmentLen > 0 && att.FileSize > s.limits.MaxAttachmentLen {
			return errs.ErrPayloadTooLarge.WrapMsg("attachment", "size", att.FileSize)
		}
	}
	return nil
}

// Send 定序并提交一条消息：Sequencer → Append → 发送方光标，原子于独占段内。
// 任一步失败则无部分状态可见；失败的序号不复用，重试时从日志尾重新导出。
func (s *Session) Send(ctx context.Context, senderID string, kind model.ContentKind, payload []byte, att *model.Attachment) (*model.Message, error) {
	s.mu.Lock()
	if err := s.validate(senderID, kind, payload, att); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	m, err := s.appendLocked(ctx, &model.Message{
		ConversationID: s.conv.ConversationID,
		ServerMsgID:    uuid.NewString(),
		SenderID:       senderID,
		Kind:           kind,
		Payload:        payload,
		Attachment:     att,
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	// Append 返回即发送成功：光标可随时由日志重建，这里失败只降级为告警，
	// 绝不回滚已提交的条目，也不让客户端误以为要重发。
	if err := s.tracker.MarkSent(ctx, m.ConversationID, senderID, m.Seq); err != nil {
		logger.Warnf("[session] mark sent user=%s conv=%s seq=%d: %v", senderID, m.ConversationID, m.Seq, err)
	}
	// Publish 仍在独占段内：入列是非阻塞的，而出了锁再入列会让并发 send
	// 以乱序到达 router，破坏单订阅者的按 seq 投递保证。
	s.sink.Publish(s.conv, model.NewMessageEvent(m), senderID)
	s.mu.Unlock()
	return m, nil
}

// appendLocked runs the sequencer+log pair. Callers hold s.mu.
func (s *Session) appendLocked(ctx context.Context, m *model.Message) (*model.Message, error) {
	seq, err := s.nextSequence(ctx)
	if err != nil {
		return nil, err
	}
	m.Seq = seq
	m.CreateTime = s.serverNow()

	if err := s.store.Append(ctx, m); err != nil {
		// 计数器作废，下次从日志尾重导出；序号永不复用。
		s.nextSeq = 0
		return nil, err
	}
	s.nextSeq = seq + 1
	return m, nil
}

// AddParticipant 成员变更与消息同日志定序。非成员发起 => NotAuthorized。
func (s *Session) AddParticipant(ctx context.Context, actorID, userID string) (*model.Message, error) {
	return s.changeMembership(ctx, actorID, userID, model.MemberAdd)
}

func (s *Session) RemoveParticipant(ctx context.Context, actorID, userID string) (*model.Message, error) {
	return s.changeMembership(ctx, actorID, userID, model.MemberRemove)
}

func (s *Session) changeMembership(ctx context.Context, actorID, userID, op string) (*model.Message, error) {
	s.mu.Lock()
	if !s.conv.HasParticipant(actorID) {
		s.mu.Unlock()
		return nil, errs.ErrNotAuthorized.WrapMsg(op, "actor", actorID, "conv", s.conv.ConversationID)
	}
	if !s.conv.IsGroup {
		s.mu.Unlock()
		return nil, errs.ErrNotAuthorized.WrapMsg("direct conversations have fixed membership")
	}
	if op == model.MemberAdd && !model.ValidParticipantID(userID) {
		s.mu.Unlock()
		return nil, errs.ErrInvalidParticipant.WrapMsg(op, "user", userID)
	}
	isMember := s.conv.HasParticipant(userID)
	if op == model.MemberAdd && isMember {
		s.mu.Unlock()
		return nil, errs.ErrAlreadyMember.WrapMsg(op, "user", userID)
	}
	if op == model.MemberRemove && !isMember {
		s.mu.Unlock()
		return nil, errs.ErrNotMember.WrapMsg(op, "user", userID)
	}

	m, err := s.appendLocked(ctx, &model.Message{
		ConversationID: s.conv.ConversationID,
		ServerMsgID:    uuid.NewString(),
		SenderID:       actorID,
		Kind:           model.KindMembership,
		Membership:     &model.MembershipChange{Op: op, UserID: userID, ActorID: actorID},
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	// 日志已提交，成员表快照跟进（同锁内，后续定序都看见新表）。
	if op == model.MemberAdd {
		s.conv.Participants = append(s.conv.Participants, userID)
	} else {
		kept := s.conv.Participants[:0]
		for _, p := range s.conv.Participants {
			if p != userID {
				kept = append(kept, p)
			}
		}
		s.conv.Participants = kept
	}
	if err := s.store.PutConversation(ctx, s.conv); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.sink.Publish(s.conv, model.NewMembershipEvent(m), "")
	s.mu.Unlock()
	return m, nil
}

// CatchUp 重连补拉：读已提交的不可变条目，无需独占段，可与 append 并发。
// 返回条数以 limit 与服务端上限为界，调用方循环直到返回数 < limit。
func (s *Session) CatchUp(ctx context.Context, participantID string, sinceSeq int64, limit int) ([]*model.Message, error) {
	conv := s.Conversation()
	if !conv.HasParticipant(participantID) {
		return nil, errs.ErrNotAuthorized.WrapMsg("catchup", "user", participantID, "conv", conv.ConversationID)
	}
	max := s.limits.CatchUpMaxBatch
	if limit <= 0 || (max > 0 && limit > max) {
		limit = max
	}
	return s.store.ReadRange(ctx, conv.ConversationID, sinceSeq, 0, limit)
}
