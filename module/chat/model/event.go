package model

// ===== 服务端推送事件 =====

type EventType string

const (
	EventMessage    EventType = "message"
	EventReceipt    EventType = "receipt"
	EventMembership EventType = "membership"
)

// Receipt 已读回执：ParticipantID 在会话内读到了 ReadSeq。
type Receipt struct {
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId"`
	ReadSeq        int64  `json:"readSeq"`
}

// Event 是 fan-out 的统一载荷：共享信封 + 按类型取用的变体字段。
// 同一会话内事件对单个订阅者按 Seq 非降序投递；跨会话无序。
type Event struct {
	Type           EventType         `json:"type"`
	ConversationID string            `json:"conversationId"`
	Message        *Message          `json:"message,omitempty"`
	Receipt        *Receipt          `json:"receipt,omitempty"`
	Membership     *MembershipChange `json:"membership,omitempty"`
	Seq            int64             `json:"seq,omitempty"` // 定序事件携带（message/membership）
}

func NewMessageEvent(m *Message) *Event {
	return &Event{Type: EventMessage, ConversationID: m.ConversationID, Message: m, Seq: m.Seq}
}

func NewMembershipEvent(m *Message) *Event {
	return &Event{Type: EventMembership, ConversationID: m.ConversationID, Membership: m.Membership, Seq: m.Seq}
}

func NewReceiptEvent(convID, participantID string, readSeq int64) *Event {
	return &Event{
		Type:           EventReceipt,
		ConversationID: convID,
		Receipt:        &Receipt{ConversationID: convID, ParticipantID: participantID, ReadSeq: readSeq},
	}
}
