package model

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "ChatRelay/service/mgo"
)

// User is the account master record. The credential hash never leaves
// the store; ConnID is the persisted connection handle and is best-effort
// only (the in-memory registry is authoritative for routing).
type User struct {
	UserID   string `bson:"user_id" json:"id"` // globally unique, immutable (primary key)
	Email    string `bson:"email" json:"email"`
	Username string `bson:"username" json:"username"`
	Nickname string `bson:"nickname,omitempty" json:"nickname,omitempty"`
	FaceURL  string `bson:"face_url,omitempty" json:"faceUrl,omitempty"`

	PasswordHash string `bson:"password_hash" json:"-"`

	// ConnID mirrors the live connection handle for cross-process
	// discoverability; cleared on disconnect, may lag after a crash.
	ConnID string `bson:"conn_id,omitempty" json:"-"`

	CreateTime time.Time `bson:"create_time" json:"createdAt"`
	UpdateTime time.Time `bson:"update_time" json:"-"`
}

func (u *User) GetUserID() string { return u.UserID }

func (u *User) GetNickname() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

func (u *User) GetTableName() string { return "user" }

func (u *User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}
