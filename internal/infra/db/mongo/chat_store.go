package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shamsa/internal/domain/chat"
)

// ChatStore implements chat.Store on MongoDB. Change streams are the push
// primitive: every relevant insert or update triggers a full re-query of the
// subscription's result set, which is delivered wholesale. Deliveries for one
// subscription come from a single goroutine, so snapshots are naturally in
// recency order.
type ChatStore struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
	logger        *slog.Logger

	// resumeWindow bounds change-stream re-establishment before the failure
	// is surfaced through the subscription callback.
	resumeWindow time.Duration
}

func NewChatStore(db *mongo.Database, logger *slog.Logger) *ChatStore {
	return &ChatStore{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
		logger:        logger,
		resumeWindow:  30 * time.Second,
	}
}

func (s *ChatStore) CreateConversation(ctx context.Context, c chat.Conversation) (string, error) {
	doc := newConversationDocument(c)
	doc.ID = uuid.NewString()
	if _, err := s.conversations.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo: insert conversation: %w", err)
	}
	return doc.ID, nil
}

func (s *ChatStore) UpdateConversationSummary(ctx context.Context, conversationID string, sum chat.Summary) error {
	update := bson.M{"$set": bson.M{
		"updated_at":           sum.UpdatedAt.UnixMilli(),
		"last_message_preview": sum.LastMessagePreview,
	}}
	if _, err := s.conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, update); err != nil {
		return fmt.Errorf("mongo: update conversation summary: %w", err)
	}
	return nil
}

func (s *ChatStore) CreateMessage(ctx context.Context, m chat.Message) (string, error) {
	doc := newMessageDocument(m)
	doc.ID = uuid.NewString()
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo: insert message: %w", err)
	}
	return doc.ID, nil
}

func (s *ChatStore) SubscribeConversations(ctx context.Context, userID string, fn chat.ConversationsFunc) (chat.Subscription, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
		"operationType":             bson.M{"$in": bson.A{"insert", "update", "replace"}},
		"fullDocument.participants": userID,
	}}}}
	query := func(ctx context.Context) ([]chat.Conversation, error) {
		cursor, err := s.conversations.Find(ctx,
			bson.M{"participants": userID},
			options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}),
		)
		if err != nil {
			return nil, err
		}
		var docs []conversationDocument
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		out := make([]chat.Conversation, 0, len(docs))
		for _, doc := range docs {
			out = append(out, doc.toConversation())
		}
		return out, nil
	}
	return watch(ctx, s, s.conversations, pipeline, query, fn)
}

func (s *ChatStore) SubscribeMessages(ctx context.Context, conversationID string, fn chat.MessagesFunc) (chat.Subscription, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
		"operationType":                bson.M{"$in": bson.A{"insert", "update", "replace"}},
		"fullDocument.conversation_id": conversationID,
	}}}}
	query := func(ctx context.Context) ([]chat.Message, error) {
		cursor, err := s.messages.Find(ctx,
			bson.M{"conversation_id": conversationID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
		)
		if err != nil {
			return nil, err
		}
		var docs []messageDocument
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		out := make([]chat.Message, 0, len(docs))
		for _, doc := range docs {
			out = append(out, doc.toMessage())
		}
		return out, nil
	}
	return watch(ctx, s, s.messages, pipeline, query, fn)
}

// watch runs the snapshot/change-stream loop for one subscription: deliver the
// initial query result, then re-query on every matching change event. Stream
// failures are retried with exponential backoff inside resumeWindow; once that
// is exhausted the error is handed to the callback and the watcher stops.
// Retry policy beyond that point belongs to the caller.
func watch[T any](
	ctx context.Context,
	s *ChatStore,
	col *mongo.Collection,
	pipeline mongo.Pipeline,
	query func(context.Context) ([]T, error),
	fn func([]T, error),
) (chat.Subscription, error) {
	initial, err := query(ctx)
	if err != nil {
		return nil, fmt.Errorf("mongo: initial snapshot: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	fn(initial, nil)

	open := func(ctx context.Context) (changeStream, error) {
		streamOpts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		return col.Watch(ctx, pipeline, streamOpts)
	}
	go runWatch(watchCtx, s.resumeWindow, s.logger, col.Name(), open, query, fn)

	return cancelFunc(cancel), nil
}

// changeStream is the slice of *mongo.ChangeStream the watch loop needs.
type changeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// errStreamEnded marks a change stream that ended without error; the server
// may close streams it considers idle, so a clean end is re-opened like a
// failure rather than treated as completion.
var errStreamEnded = errors.New("mongo: change stream ended")

// runWatch is the delivery loop behind watch. Every successfully opened
// stream is followed by an immediate re-query, which covers writes that
// landed before the stream existed: both the window between the initial
// snapshot and the first open, and any outage between re-opens. The backoff
// policy is reset after each healthy open so resumeWindow bounds one outage,
// not the subscription's whole life.
func runWatch[T any](
	ctx context.Context,
	resumeWindow time.Duration,
	logger *slog.Logger,
	collection string,
	open func(context.Context) (changeStream, error),
	query func(context.Context) ([]T, error),
	fn func([]T, error),
) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = resumeWindow

	deliverChanges := func() error {
		stream, err := open(ctx)
		if err != nil {
			return err
		}
		defer stream.Close(context.Background())

		snapshot, err := query(ctx)
		if err != nil {
			return err
		}
		policy.Reset()
		fn(snapshot, nil)

		for stream.Next(ctx) {
			snapshot, err := query(ctx)
			if err != nil {
				return err
			}
			fn(snapshot, nil)
		}
		if err := stream.Err(); err != nil {
			return err
		}
		return errStreamEnded
	}

	err := backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return deliverChanges()
	}, backoff.WithContext(policy, ctx))

	if err != nil && ctx.Err() == nil {
		if logger != nil {
			logger.Error("change stream lost", "collection", collection, "error", err)
		}
		fn(nil, err)
	}
}

type cancelFunc func()

func (f cancelFunc) Cancel() { f() }

type conversationDocument struct {
	ID                 string   `bson:"_id"`
	Participants       []string `bson:"participants"`
	CreatedAt          int64    `bson:"created_at"`
	UpdatedAt          int64    `bson:"updated_at"`
	LastMessagePreview string   `bson:"last_message_preview"`
}

func newConversationDocument(c chat.Conversation) conversationDocument {
	return conversationDocument{
		ID:                 c.ID,
		Participants:       append([]string(nil), c.Participants...),
		CreatedAt:          c.CreatedAt.UnixMilli(),
		UpdatedAt:          c.UpdatedAt.UnixMilli(),
		LastMessagePreview: c.LastMessagePreview,
	}
}

func (d conversationDocument) toConversation() chat.Conversation {
	return chat.Conversation{
		ID:                 d.ID,
		Participants:       d.Participants,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		LastMessagePreview: d.LastMessagePreview,
	}
}

type mediaDocument struct {
	URL   string `bson:"url"`
	Title string `bson:"title"`
}

type replyDocument struct {
	MessageID  string         `bson:"message_id"`
	SenderName string         `bson:"sender_name"`
	Body       string         `bson:"body"`
	Type       string         `bson:"type"`
	Media      *mediaDocument `bson:"media,omitempty"`
}

type messageDocument struct {
	ID             string         `bson:"_id"`
	ConversationID string         `bson:"conversation_id"`
	SenderID       string         `bson:"sender_id"`
	SenderName     string         `bson:"sender_name"`
	SenderAvatar   string         `bson:"sender_avatar"`
	Type           string         `bson:"type"`
	Body           string         `bson:"body"`
	Media          *mediaDocument `bson:"media,omitempty"`
	CreatedAt      int64          `bson:"created_at"`
	ReplyTo        *replyDocument `bson:"reply_to,omitempty"`
}

func newMessageDocument(m chat.Message) messageDocument {
	doc := messageDocument{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderAvatar:   m.SenderAvatar,
		Type:           string(m.Type),
		Body:           m.Body,
		CreatedAt:      m.CreatedAt.UnixMilli(),
	}
	if m.Media != nil {
		doc.Media = &mediaDocument{URL: m.Media.URL, Title: m.Media.Title}
	}
	if m.ReplyTo != nil {
		doc.ReplyTo = &replyDocument{
			MessageID:  m.ReplyTo.ID,
			SenderName: m.ReplyTo.SenderName,
			Body:       m.ReplyTo.Body,
			Type:       string(m.ReplyTo.Type),
		}
		if m.ReplyTo.Media != nil {
			doc.ReplyTo.Media = &mediaDocument{URL: m.ReplyTo.Media.URL, Title: m.ReplyTo.Media.Title}
		}
	}
	return doc
}

func (d messageDocument) toMessage() chat.Message {
	msg := chat.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		SenderName:     d.SenderName,
		SenderAvatar:   d.SenderAvatar,
		Type:           chat.MessageType(d.Type),
		Body:           d.Body,
		CreatedAt:      timestampToTime(d.CreatedAt),
	}
	if d.Media != nil {
		msg.Media = &chat.MediaRef{URL: d.Media.URL, Title: d.Media.Title}
	}
	if d.ReplyTo != nil {
		msg.ReplyTo = &chat.ReplySnapshot{
			ID:         d.ReplyTo.MessageID,
			SenderName: d.ReplyTo.SenderName,
			Body:       d.ReplyTo.Body,
			Type:       chat.MessageType(d.ReplyTo.Type),
		}
		if d.ReplyTo.Media != nil {
			msg.ReplyTo.Media = &chat.MediaRef{URL: d.ReplyTo.Media.URL, Title: d.ReplyTo.Media.Title}
		}
	}
	return msg
}
