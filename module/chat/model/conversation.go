package model

import (
	"strings"
	"time"

	"chatcore/tools/ids"
)

// Conversation 会话元数据：稳定成员表 + 群标志。
// 成员表只在会话独占段内改写（成员变更与消息同日志定序）。
type Conversation struct {
	ConversationID  string   `bson:"conversation_id" json:"conversationId"`
	IsGroup         bool     `bson:"is_group" json:"isGroup"`
	Participants    []string `bson:"participants" json:"participants"`
	ReceiptsEnabled bool     `bson:"receipts_enabled" json:"receiptsEnabled"`
	CreateTime      time.Time `bson:"create_time" json:"createTime"`
}

func (*Conversation) TableName() string { return "conversation" }

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to hand out while the session keeps mutating
// the membership list under its lock.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}

// ValidParticipantID 参与者ID不能为空，也不能含会话ID方案的保留字符：
// '_' 是单聊ID里的成员分隔符，':' 是前缀分隔符。含保留字符的ID会让
// DirectPeers 把两个不同的成员对解析成同一个会话。
func ValidParticipantID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "_: \t\r\n")
}

func normPair(a, b string) (lo, hi string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// DirectConvID 单聊的统一会话ID：p2p:min_max，双方各自发起都会收敛到同一条日志。
func DirectConvID(a, b string) string {
	lo, hi := normPair(a, b)
	return "p2p:" + lo + "_" + hi
}

// IsDirectConvID reports whether id follows the canonical direct-chat scheme.
func IsDirectConvID(id string) bool {
	return strings.HasPrefix(id, "p2p:")
}

// DirectPeers splits a canonical direct-chat ID back into the two user IDs.
func DirectPeers(id string) (a, b string, ok bool) {
	if !IsDirectConvID(id) {
		return "", "", false
	}
	rest := strings.TrimPrefix(id, "p2p:")
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// GroupConvID 群聊会话ID：grp:<snowflake>
func GroupConvID() string {
	return "grp:" + ids.GenerateString()
}
