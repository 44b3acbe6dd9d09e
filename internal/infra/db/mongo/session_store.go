package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shamsa/internal/domain/auth"
	"shamsa/internal/domain/user"
)

type SessionStore struct {
	col *mongo.Collection
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{col: db.Collection("sessions")}
}

func (s *SessionStore) Save(ctx context.Context, session *auth.Session) error {
	doc := sessionDocument{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt.UnixMilli(),
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.col.UpdateOne(ctx, bson.M{"_id": doc.Token}, bson.M{"$set": doc}, opts); err != nil {
		return fmt.Errorf("mongo: save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token auth.Token) (*auth.Session, error) {
	var doc sessionDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": string(token)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("mongo: find session: %w", err)
	}
	return doc.toSession(), nil
}

func (s *SessionStore) Delete(ctx context.Context, token auth.Token) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
	if err != nil {
		return fmt.Errorf("mongo: delete session: %w", err)
	}
	if res.DeletedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID user.ID) error {
	if _, err := s.col.DeleteMany(ctx, bson.M{"user_id": string(userID)}); err != nil {
		return fmt.Errorf("mongo: delete sessions by user: %w", err)
	}
	return nil
}

type sessionDocument struct {
	Token     string `bson:"_id"`
	UserID    string `bson:"user_id"`
	CreatedAt int64  `bson:"created_at"`
	ExpiresAt int64  `bson:"expires_at"`
}

func (d sessionDocument) toSession() *auth.Session {
	return &auth.Session{
		Token:     auth.Token(d.Token),
		UserID:    user.ID(d.UserID),
		CreatedAt: timestampToTime(d.CreatedAt),
		ExpiresAt: timestampToTime(d.ExpiresAt),
	}
}
