package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guildtrack/guildtrack/internal/models"
)

// MongoStore implements Store on a Mongo collection. The unique compound
// index on (userId, guildId) is what turns a create/create race between two
// transactions into a duplicate-key error instead of a duplicate record.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// EnsureIndexes creates the unique member key index. Idempotent; call once
// at startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "guildId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure member index: %w", err)
	}
	return nil
}

func (s *MongoStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sess, err := s.col.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoTx{col: s.col})
	})
	return err
}

func (s *MongoStore) Get(ctx context.Context, userID, guildID int64) (*models.Member, error) {
	var m models.Member
	err := s.col.FindOne(ctx, bson.M{"userId": userID, "guildId": guildID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) List(ctx context.Context) ([]*models.Member, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type mongoTx struct {
	col *mongo.Collection
}

func (t *mongoTx) TryUpdate(ctx context.Context, userID, guildID int64, patch models.MemberPatch) (bool, error) {
	set := bson.M{"lastSeen": patch.LastSeen}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Discriminator != nil {
		set["discriminator"] = *patch.Discriminator
	}
	if patch.Nick != nil {
		set["nick"] = *patch.Nick
	}
	res, err := t.col.UpdateOne(ctx, bson.M{"userId": userID, "guildId": guildID}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (t *mongoTx) Create(ctx context.Context, m *models.Member) error {
	_, err := t.col.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}
