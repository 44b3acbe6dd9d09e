package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainuser "shamsa/internal/domain/user"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: find user: %w", err)
	}
	return doc.toUser(), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var doc userDocument
	filter := bson.M{"email": domainuser.NormalizeEmail(email)}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: find user by email: %w", err)
	}
	return doc.toUser(), nil
}

func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	doc := newUserDocument(u)
	opts := options.Update().SetUpsert(true)
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": doc}, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainuser.ErrEmailAlreadyUsed
		}
		return fmt.Errorf("mongo: save user: %w", err)
	}
	return nil
}

func (r *UserRepository) Search(ctx context.Context, namePrefix string, limit int) ([]*domainuser.User, error) {
	filter := bson.M{}
	if namePrefix != "" {
		filter["display_name"] = bson.M{"$regex": primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(namePrefix),
			Options: "i",
		}}
	}
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "display_name", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: search users: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode users: %w", err)
	}
	out := make([]*domainuser.User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toUser())
	}
	return out, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id domainuser.ID, patch domainuser.ProfilePatch) (*domainuser.User, error) {
	set := bson.M{"updated_at": time.Now().UnixMilli()}
	if patch.DisplayName != nil {
		set["display_name"] = *patch.DisplayName
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.ProfilePicture != nil {
		set["profile_picture"] = *patch.ProfilePicture
	}
	if patch.Age != nil {
		set["age"] = *patch.Age
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": string(id)}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: update profile: %w", err)
	}
	return doc.toUser(), nil
}

// Follow mirrors the client's two independent array updates; they are not a
// transaction, and a failure between them leaves a one-sided edge that the
// next follow/unfollow repairs.
func (r *UserRepository) Follow(ctx context.Context, follower, target domainuser.ID) error {
	if err := r.pushUnique(ctx, follower, "following", string(target)); err != nil {
		return err
	}
	return r.pushUnique(ctx, target, "followers", string(follower))
}

func (r *UserRepository) Unfollow(ctx context.Context, follower, target domainuser.ID) error {
	if err := r.pull(ctx, follower, "following", string(target)); err != nil {
		return err
	}
	return r.pull(ctx, target, "followers", string(follower))
}

func (r *UserRepository) AdjustDragons(ctx context.Context, id domainuser.ID, delta int) error {
	filter := bson.M{"_id": string(id)}
	if delta < 0 {
		// Guard against overdraft at the document level.
		filter["dragons"] = bson.M{"$gte": -delta}
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"dragons": delta}})
	if err != nil {
		return fmt.Errorf("mongo: adjust dragons: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, findErr := r.ByID(ctx, id); findErr != nil {
			return findErr
		}
		return domainuser.ErrInsufficientFunds
	}
	return nil
}

func (r *UserRepository) GrantEmoji(ctx context.Context, id domainuser.ID, emojiID string) error {
	return r.pushUnique(ctx, id, "emojis", emojiID)
}

func (r *UserRepository) IncrementPostsCount(ctx context.Context, id domainuser.ID, delta int) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$inc": bson.M{"posts_count": delta}})
	if err != nil {
		return fmt.Errorf("mongo: increment posts count: %w", err)
	}
	if res.MatchedCount == 0 {
		return domainuser.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id domainuser.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return fmt.Errorf("mongo: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domainuser.ErrNotFound
	}
	return nil
}

func (r *UserRepository) pushUnique(ctx context.Context, id domainuser.ID, field, value string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$addToSet": bson.M{field: value}})
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return domainuser.ErrNotFound
	}
	return nil
}

func (r *UserRepository) pull(ctx context.Context, id domainuser.ID, field, value string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$pull": bson.M{field: value}})
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return domainuser.ErrNotFound
	}
	return nil
}

type userDocument struct {
	ID             string   `bson:"_id"`
	Email          string   `bson:"email"`
	DisplayName    string   `bson:"display_name"`
	PasswordHash   string   `bson:"password_hash"`
	Age            int      `bson:"age"`
	Bio            string   `bson:"bio"`
	ProfilePicture string   `bson:"profile_picture"`
	Dragons        int      `bson:"dragons"`
	Emojis         []string `bson:"emojis"`
	Followers      []string `bson:"followers"`
	Following      []string `bson:"following"`
	PostsCount     int      `bson:"posts_count"`
	IsOnline       bool     `bson:"is_online"`
	LastSeen       int64    `bson:"last_seen"`
	CreatedAt      int64    `bson:"created_at"`
	UpdatedAt      int64    `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:             string(u.ID),
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		PasswordHash:   u.PasswordHash,
		Age:            u.Age,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		Dragons:        u.Dragons,
		Emojis:         u.Emojis,
		Followers:      idsToStrings(u.Followers),
		Following:      idsToStrings(u.Following),
		PostsCount:     u.PostsCount,
		IsOnline:       u.IsOnline,
		LastSeen:       u.LastSeen.UnixMilli(),
		CreatedAt:      u.CreatedAt.UnixMilli(),
		UpdatedAt:      u.UpdatedAt.UnixMilli(),
	}
}

func (d userDocument) toUser() *domainuser.User {
	return &domainuser.User{
		ID:             domainuser.ID(d.ID),
		Email:          d.Email,
		DisplayName:    d.DisplayName,
		PasswordHash:   d.PasswordHash,
		Age:            d.Age,
		Bio:            d.Bio,
		ProfilePicture: d.ProfilePicture,
		Dragons:        d.Dragons,
		Emojis:         d.Emojis,
		Followers:      stringsToIDs(d.Followers),
		Following:      stringsToIDs(d.Following),
		PostsCount:     d.PostsCount,
		IsOnline:       d.IsOnline,
		LastSeen:       timestampToTime(d.LastSeen),
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
	}
}

func idsToStrings(ids []domainuser.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func stringsToIDs(values []string) []domainuser.ID {
	out := make([]domainuser.ID, 0, len(values))
	for _, v := range values {
		out = append(out, domainuser.ID(v))
	}
	return out
}
