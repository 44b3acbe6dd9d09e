package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shamsa/internal/domain/feed"
)

type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{col: db.Collection("posts")}
}

func (r *PostRepository) Create(ctx context.Context, post *feed.Post) (string, error) {
	doc := newPostDocument(post)
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo: insert post: %w", err)
	}
	return doc.ID, nil
}

func (r *PostRepository) ByID(ctx context.Context, id string) (*feed.Post, error) {
	var doc postDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, feed.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: find post: %w", err)
	}
	return doc.toPost(), nil
}

func (r *PostRepository) List(ctx context.Context, authorID string, limit int) ([]*feed.Post, error) {
	filter := bson.M{}
	if authorID != "" {
		filter["author_id"] = authorID
	}
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list posts: %w", err)
	}
	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode posts: %w", err)
	}
	out := make([]*feed.Post, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toPost())
	}
	return out, nil
}

func (r *PostRepository) AddLike(ctx context.Context, postID, userID string) error {
	return r.updateLikes(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *PostRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	return r.updateLikes(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (r *PostRepository) AddComment(ctx context.Context, postID string, comment feed.Comment) error {
	doc := commentDocument{
		ID:           comment.ID,
		AuthorID:     comment.AuthorID,
		AuthorName:   comment.AuthorName,
		AuthorAvatar: comment.AuthorAvatar,
		Content:      comment.Content,
		CreatedAt:    comment.CreatedAt.UnixMilli(),
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$push": bson.M{"comments": doc}})
	if err != nil {
		return fmt.Errorf("mongo: add comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return feed.ErrNotFound
	}
	return nil
}

func (r *PostRepository) updateLikes(ctx context.Context, postID string, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err != nil {
		return fmt.Errorf("mongo: update likes: %w", err)
	}
	if res.MatchedCount == 0 {
		return feed.ErrNotFound
	}
	return nil
}

type postDocument struct {
	ID           string            `bson:"_id"`
	AuthorID     string            `bson:"author_id"`
	AuthorName   string            `bson:"author_name"`
	AuthorAvatar string            `bson:"author_avatar"`
	Content      string            `bson:"content"`
	ImageURL     string            `bson:"image_url,omitempty"`
	Likes        []string          `bson:"likes"`
	Comments     []commentDocument `bson:"comments"`
	CreatedAt    int64             `bson:"created_at"`
}

type commentDocument struct {
	ID           string `bson:"id"`
	AuthorID     string `bson:"author_id"`
	AuthorName   string `bson:"author_name"`
	AuthorAvatar string `bson:"author_avatar"`
	Content      string `bson:"content"`
	CreatedAt    int64  `bson:"created_at"`
}

func newPostDocument(post *feed.Post) postDocument {
	comments := make([]commentDocument, 0, len(post.Comments))
	for _, c := range post.Comments {
		comments = append(comments, commentDocument{
			ID:           c.ID,
			AuthorID:     c.AuthorID,
			AuthorName:   c.AuthorName,
			AuthorAvatar: c.AuthorAvatar,
			Content:      c.Content,
			CreatedAt:    c.CreatedAt.UnixMilli(),
		})
	}
	likes := post.Likes
	if likes == nil {
		likes = []string{}
	}
	return postDocument{
		ID:           post.ID,
		AuthorID:     post.AuthorID,
		AuthorName:   post.AuthorName,
		AuthorAvatar: post.AuthorAvatar,
		Content:      post.Content,
		ImageURL:     post.ImageURL,
		Likes:        likes,
		Comments:     comments,
		CreatedAt:    post.CreatedAt.UnixMilli(),
	}
}

func (d postDocument) toPost() *feed.Post {
	comments := make([]feed.Comment, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, feed.Comment{
			ID:           c.ID,
			AuthorID:     c.AuthorID,
			AuthorName:   c.AuthorName,
			AuthorAvatar: c.AuthorAvatar,
			Content:      c.Content,
			CreatedAt:    timestampToTime(c.CreatedAt),
		})
	}
	likes := d.Likes
	if likes == nil {
		likes = []string{}
	}
	return &feed.Post{
		ID:           d.ID,
		AuthorID:     d.AuthorID,
		AuthorName:   d.AuthorName,
		AuthorAvatar: d.AuthorAvatar,
		Content:      d.Content,
		ImageURL:     d.ImageURL,
		Likes:        likes,
		Comments:     comments,
		CreatedAt:    timestampToTime(d.CreatedAt),
	}
}
