package log

import (
	"context"

	"chatcore/module/chat/model"
	"chatcore/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	msgColl  *mongo.Collection
	convColl *mongo.Collection
}

// NewMongoStore builds the production log over two collections:
// message (unique index conversation_id+seq) and conversation.
// Durability rides on the driver's acknowledged writes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (Store, error) {
	msg := model.Message{}
	conv := model.Conversation{}
	s := &mongoStore{
		msgColl:  db.Collection(msg.TableName()),
		convColl: db.Collection(conv.TableName()),
	}
	_, err := s.msgColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_conv_seq"),
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "create message index")
	}
	_, err = s.convColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_conv"),
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "create conversation index")
	}
	return s, nil
}

func (s *mongoStore) PutConversation(ctx context.Context, c *model.Conversation) error {
	_, err := s.convColl.ReplaceOne(ctx,
		bson.M{"conversation_id": c.ConversationID},
		c,
		options.Replace().SetUpsert(true),
	)
	return errs.WrapMsg(err, "put conversation", "conv", c.ConversationID)
}

func (s *mongoStore) GetConversation(ctx context.Context, convID string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.convColl.FindOne(ctx, bson.M{"conversation_id": convID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrConversationNotFound.WrapMsg("get", "conv", convID)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "get conversation", "conv", convID)
	}
	return &c, nil
}

func (s *mongoStore) Append(ctx context.Context, m *model.Message) error {
	// 先验尾号：seq 必须恰好是 tail+1（防御 Sequencer 误用）。
	// 持有会话独占段的只有一个写者，tail 读取与插入之间不会有并发追加；
	// 真正的并发误用最终还会被唯一索引拦下。
	tail, err := s.TailSequence(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	if m.Seq <= tail {
		return errs.ErrConflict.WrapMsg("append", "conv", m.ConversationID, "seq", m.Seq, "tail", tail)
	}
	if m.Seq != tail+1 {
		return errs.ErrOutOfOrder.WrapMsg("append", "conv", m.ConversationID, "seq", m.Seq, "tail", tail)
	}
	if _, err := s.msgColl.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrConflict.WrapMsg("append dup", "conv", m.ConversationID, "seq", m.Seq)
		}
		return errs.WrapMsg(err, "append", "conv", m.ConversationID, "seq", m.Seq)
	}
	return nil
}

func (s *mongoStore) ReadRange(ctx context.Context, convID string, fromSeq, toSeq int64, limit int) ([]*model.Message, error) {
	filter := bson.M{"conversation_id": convID, "seq": bson.M{"$gt": fromSeq}}
	if toSeq > 0 {
		filter["seq"] = bson.M{"$gt": fromSeq, "$lte": toSeq}
	}
	opts := options.Find().SetSort(bson.M{"seq": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.msgColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "read range", "conv", convID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	for cur.Next(ctx) {
		var m model.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errs.WrapMsg(err, "decode message", "conv", convID)
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *mongoStore) TailSequence(ctx context.Context, convID string) (int64, error) {
	cur, err := s.msgColl.Find(ctx,
		bson.M{"conversation_id": convID},
		options.Find().SetSort(bson.M{"seq": -1}).SetLimit(1).SetProjection(bson.M{"seq": 1}),
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "tail", "conv", convID)
	}
	defer func() { _ = cur.Close(ctx) }()
	if cur.Next(ctx) {
		var m model.Message
		_ = cur.Decode(&m)
		return m.Seq, nil
	}
	return 0, cur.Err()
}
