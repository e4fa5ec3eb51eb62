package model

// ===== 消息内容类型 =====

type ContentKind string

const (
	KindText     ContentKind = "text"
	KindDocument ContentKind = "document"
	KindImage    ContentKind = "image"

	// KindMembership marks a sequenced membership-change entry. It lives in
	// the same log as messages so membership edits are totally ordered
	// relative to message traffic.
	KindMembership ContentKind = "membership"
)

func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindDocument, KindImage:
		return true
	}
	return false
}

// NeedsAttachment 文档/图片消息必须携带附件元信息
func (k ContentKind) NeedsAttachment() bool {
	return k == KindDocument || k == KindImage
}

// Attachment 附件元信息快照；字节内容存媒体服务，这里只存引用。
type Attachment struct {
	FileName   string `bson:"file_name" json:"fileName"`
	FileSize   int64  `bson:"file_size" json:"fileSize"`
	StorageRef string `bson:"storage_ref" json:"storageRef"`
}

const (
	MemberAdd    = "add"
	MemberRemove = "remove"
)

// MembershipChange 群成员变更（add/remove），由 ActorID 发起。
type MembershipChange struct {
	Op      string `bson:"op" json:"op"`
	UserID  string `bson:"user_id" json:"userId"`
	ActorID string `bson:"actor_id" json:"actorId"`
}

// Message 是会话日志里的一条不可变条目（消息本体或成员变更）。
// Seq 由会话的 Sequencer 在独占段内分配：从1起步、严格递增、无空洞。
type Message struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	Seq            int64  `bson:"seq" json:"seq"`
	ServerMsgID    string `bson:"server_msg_id" json:"serverMsgId"` // 服务端分配的消息ID
	SenderID       string `bson:"sender_id" json:"senderId"`

	Kind       ContentKind       `bson:"kind" json:"kind"`
	Payload    []byte            `bson:"payload,omitempty" json:"payload,omitempty"` // 不透明内容
	Attachment *Attachment       `bson:"attachment,omitempty" json:"attachment,omitempty"`
	Membership *MembershipChange `bson:"membership,omitempty" json:"membership,omitempty"`

	CreateTime int64 `bson:"create_time" json:"createTime"` // 服务端时间(Unix ms)，随 Seq 单调
}

func (*Message) TableName() string { return "message" }
