// Package log is the append-only per-conversation message store, the source
// of truth the rest of the system is rebuilt from after a crash.
package log

import (
	"context"

	"chatcore/module/chat/model"
)

// Store 抽象：生产实现 Mongo；内存实现（memory.go）用于测试与单机。
//
// Append 的持久化契约：返回 nil 即保证条目已落盘可重启恢复；
// 没有任何读者能看到未提交的条目。
type Store interface {
	// PutConversation creates or replaces conversation metadata.
	// Only the owning session calls this (under its exclusive section).
	PutConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, convID string) (*model.Conversation, error) // errs.ErrConversationNotFound

	// Append commits one entry. Fails with errs.ErrOutOfOrder when m.Seq is
	// not exactly tail+1, errs.ErrConflict when m.Seq already exists.
	Append(ctx context.Context, m *model.Message) error

	// ReadRange returns committed entries with fromSeq < seq <= toSeq in
	// order, at most limit of them (limit <= 0 means no cap here; callers
	// bound it). toSeq <= 0 means "up to the tail".
	ReadRange(ctx context.Context, convID string, fromSeq, toSeq int64, limit int) ([]*model.Message, error)

	// TailSequence reports the highest committed seq, 0 when empty.
	TailSequence(ctx context.Context, convID string) (int64, error)
}
