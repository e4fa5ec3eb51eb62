package model

// SeqUser 维护“某个用户在某个会话里的投递/已读光标”。
// 两个水位都只增不减；用更小的 seq 调用是 no-op 而不是错误
// （防御 ack 乱序到达）。未读数 = 会话尾 Seq - ReadSeq。
type SeqUser struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	UserID         string `bson:"user_id" json:"userId"`

	DeliveredSeq int64 `bson:"delivered_seq" json:"deliveredSeq"` // 已投递到该用户至少一个连接的最大序号
	ReadSeq      int64 `bson:"read_seq" json:"readSeq"`           // 用户已读确认的最大序号

	UpdateTime int64 `bson:"update_time" json:"-"` // Unix ms
}

func (*SeqUser) TableName() string { return "seq_user" }
