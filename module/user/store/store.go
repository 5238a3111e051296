// Package store is the mongo-backed credential store: account records,
// credential hashes, and the persisted connection handle field.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ChatRelay/module/user/model"
	"ChatRelay/tools/errs"
)

type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) coll() *mongo.Collection {
	return s.db.Collection((&model.User{}).GetTableName())
}

// Create inserts a new account. Username and email collisions surface as
// ErrDuplicateKey.
func (s *MongoStore) Create(ctx context.Context, u *model.User) error {
	if n, err := s.coll().CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"username": u.Username},
		bson.M{"email": u.Email},
	}}); err != nil {
		return errors.Wrap(err, "count users")
	} else if n > 0 {
		return errs.ErrDuplicateKey.WithDetail("username or email taken")
	}
	if _, err := s.coll().InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrDuplicateKey.WithDetail("username or email taken")
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, userID string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"user_id": userID})
}

func (s *MongoStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	err := s.coll().FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &u, nil
}

// BindConn persists the connection handle onto the account record.
func (s *MongoStore) BindConn(ctx context.Context, userID, connID string) error {
	_, err := s.coll().UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"conn_id": connID, "update_time": time.Now()}},
	)
	return errors.Wrap(err, "bind conn")
}

// ClearConn removes the persisted handle from whichever record still
// points at connID. No matching record is a no-op, not an error: the
// entry may already belong to a newer connection.
func (s *MongoStore) ClearConn(ctx context.Context, connID string) error {
	_, err := s.coll().UpdateOne(ctx,
		bson.M{"conn_id": connID},
		bson.M{"$unset": bson.M{"conn_id": ""}, "$set": bson.M{"update_time": time.Now()}},
	)
	return errors.Wrap(err, "clear conn")
}
