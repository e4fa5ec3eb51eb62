package tracker

import (
	"context"
	"time"

	"chatcore/module/chat/model"
	"chatcore/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCursorStore struct {
	coll *mongo.Collection
}

func NewMongoCursorStore(ctx context.Context, db *mongo.Database) (CursorStore, error) {
	su := model.SeqUser{}
	s := &mongoCursorStore{coll: db.Collection(su.TableName())}
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_conv_user"),
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "create seq_user index")
	}
	return s, nil
}

func (s *mongoCursorStore) filter(convID, userID string) bson.M {
	return bson.M{"conversation_id": convID, "user_id": userID}
}

func (s *mongoCursorStore) Get(ctx context.Context, convID, userID string) (*model.SeqUser, error) {
	var c model.SeqUser
	err := s.coll.FindOne(ctx, s.filter(convID, userID)).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return &model.SeqUser{ConversationID: convID, UserID: userID}, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "get cursor", "conv", convID, "user", userID)
	}
	return &c, nil
}

func (s *mongoCursorStore) MaxDelivered(ctx context.Context, convID, userID string, seq int64) (int64, error) {
	var after model.SeqUser
	err := s.coll.FindOneAndUpdate(ctx, s.filter(convID, userID),
		bson.M{
			"$max": bson.M{"delivered_seq": seq},
			"$set": bson.M{"update_time": time.Now().UnixMilli()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&after)
	if err != nil {
		return 0, errs.WrapMsg(err, "bump delivered", "conv", convID, "user", userID)
	}
	return after.DeliveredSeq, nil
}

func (s *mongoCursorStore) MaxRead(ctx context.Context, convID, userID string, seq int64) (int64, bool, error) {
	var before model.SeqUser
	err := s.coll.FindOneAndUpdate(ctx, s.filter(convID, userID),
		bson.M{
			// 已读必然已投递，两个水位一起 $max
			"$max": bson.M{"read_seq": seq, "delivered_seq": seq},
			"$set": bson.M{"update_time": time.Now().UnixMilli()},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Decode(&before)
	if err == mongo.ErrNoDocuments {
		// upsert created the document: cursor moved from 0
		return seq, seq > 0, nil
	}
	if err != nil {
		return 0, false, errs.WrapMsg(err, "bump read", "conv", convID, "user", userID)
	}
	if seq <= before.ReadSeq {
		return before.ReadSeq, false, nil
	}
	return seq, true, nil
}
