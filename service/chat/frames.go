package chat

import (
	"encoding/json"
	"errors"

	"chatcore/module/chat/model"
	"chatcore/tools/errs"
)

// ===== 客户端协议帧（JSON over WebSocket）=====

type FrameType string

const (
	// client -> server
	FrameAuth         FrameType = "auth"
	FrameSubscribe    FrameType = "subscribe"
	FrameSend         FrameType = "send"
	FrameCatchUp      FrameType = "catchup"
	FrameMarkRead     FrameType = "mark_read"
	FrameUnread       FrameType = "unread"
	FrameCreateGroup  FrameType = "create_group"
	FrameAddMember    FrameType = "add_member"
	FrameRemoveMember FrameType = "remove_member"
	FramePing         FrameType = "ping"

	// server -> client
	FrameAuthed     FrameType = "authed"
	FrameSubscribed FrameType = "subscribed"
	FrameAccepted   FrameType = "accepted"
	FrameRejected   FrameType = "rejected"
	FrameBatch      FrameType = "batch"
	FrameEvent      FrameType = "event"
	FrameAck        FrameType = "ack"
	FrameCreated    FrameType = "created"
	FramePong       FrameType = "pong"
)

// Frame 所有帧共享一个信封，字段按类型取用；[]byte 经 std json 自动 base64。
type Frame struct {
	Type  FrameType `json:"type"`
	ReqID string    `json:"reqId,omitempty"` // 客户端请求回显

	Token           string            `json:"token,omitempty"`
	ConversationID  string            `json:"conversationId,omitempty"`
	ConversationIDs []string          `json:"conversationIds,omitempty"`
	Members         []string          `json:"members,omitempty"`
	ReceiptsEnabled *bool             `json:"receiptsEnabled,omitempty"`
	UserID          string            `json:"userId,omitempty"`
	Kind            model.ContentKind `json:"kind,omitempty"`
	Payload         []byte            `json:"payload,omitempty"`
	Attachment      *model.Attachment `json:"attachment,omitempty"`
	SinceSeq        int64             `json:"sinceSeq,omitempty"`
	Limit           int               `json:"limit,omitempty"`
	Seq             int64             `json:"seq,omitempty"`

	Code     int              `json:"code,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Messages []*model.Message `json:"messages,omitempty"`
	Event    *model.Event     `json:"event,omitempty"`
	Unread   int64            `json:"unread,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal frame")
	}
	if f.Type == "" {
		return nil, errs.New("frame missing type")
	}
	return f, nil
}

// ---- 服务端回包构造 ----

func BuildAuthed(reqID, participantID string) *Frame {
	return &Frame{Type: FrameAuthed, ReqID: reqID, UserID: participantID}
}

func BuildSubscribed(reqID string, convIDs []string) *Frame {
	return &Frame{Type: FrameSubscribed, ReqID: reqID, ConversationIDs: convIDs}
}

func BuildAccepted(reqID string, convID string, seq int64) *Frame {
	return &Frame{Type: FrameAccepted, ReqID: reqID, ConversationID: convID, Seq: seq}
}

// BuildRejected 带错误码回绝；非 CodeError 一律按内部错误处理，不泄露细节。
func BuildRejected(reqID string, err error) *Frame {
	if ce, ok := asCodeError(err); ok {
		return &Frame{Type: FrameRejected, ReqID: reqID, Code: ce.Code, Reason: ce.Msg}
	}
	return &Frame{Type: FrameRejected, ReqID: reqID, Code: 500, Reason: "internal error"}
}

func BuildBatch(reqID, convID string, msgs []*model.Message) *Frame {
	return &Frame{Type: FrameBatch, ReqID: reqID, ConversationID: convID, Messages: msgs}
}

func BuildEventFrame(ev *model.Event) *Frame {
	return &Frame{Type: FrameEvent, ConversationID: ev.ConversationID, Event: ev, Seq: ev.Seq}
}

func BuildAck(reqID string) *Frame { return &Frame{Type: FrameAck, ReqID: reqID} }

func asCodeError(err error) (*errs.CodeError, bool) {
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
