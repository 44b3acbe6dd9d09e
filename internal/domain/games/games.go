package games

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"shamsa/internal/domain/user"
)

var (
	ErrUnknownKind     = errors.New("games: unknown question kind")
	ErrQuestionExpired = errors.New("games: question expired or unknown")
)

// Kind selects the trivia category.
type Kind string

const (
	KindMath      Kind = "math"
	KindPuzzle    Kind = "puzzle"
	KindKnowledge Kind = "knowledge"
)

// QuestionPoints is the dragon reward for a correct answer.
const QuestionPoints = 5

// Question is one four-option trivia question. Correct is the index into
// Options and is never serialized to clients.
type Question struct {
	ID       string
	Kind     Kind
	Text     string
	Options  [4]string
	Correct  int
	Points   int
	IssuedAt time.Time
}

// Generator produces a question for a player of the given age. Implementations
// wrap the external text-completion service.
type Generator interface {
	Generate(ctx context.Context, kind Kind, age int) (Question, error)
}

// Service issues questions and settles answers against the dragon balance.
// Issued questions are held in memory only: a restart forfeits open questions,
// which is acceptable for a casual mini-game.
type Service struct {
	Generator Generator
	Users     user.Repository
	Logger    *slog.Logger
	Now       func() time.Time
	TTL       time.Duration

	mu   sync.Mutex
	open map[string]Question
}

// Ask issues a fresh question of the requested kind. Generator failures fall
// back to a canned question so the game never dead-ends on an outage.
func (s *Service) Ask(ctx context.Context, kind Kind, age int) (Question, error) {
	switch kind {
	case KindMath, KindPuzzle, KindKnowledge:
	default:
		return Question{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var q Question
	if s.Generator == nil {
		q = Fallback(kind)
	} else if generated, err := s.Generator.Generate(ctx, kind, age); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("question generation failed, using fallback", "kind", kind, "error", err)
		}
		q = Fallback(kind)
	} else {
		q = generated
	}
	q.ID = uuid.NewString()
	q.Kind = kind
	q.Points = QuestionPoints
	q.IssuedAt = s.now()

	s.mu.Lock()
	if s.open == nil {
		s.open = make(map[string]Question)
	}
	s.expireLocked()
	s.open[q.ID] = q
	s.mu.Unlock()
	return q, nil
}

// Answer settles choice against the open question, crediting the reward to
// playerID when correct. A question can be answered once.
func (s *Service) Answer(ctx context.Context, playerID user.ID, questionID string, choice int) (correct bool, reward int, err error) {
	s.mu.Lock()
	s.expireLocked()
	q, ok := s.open[questionID]
	if ok {
		delete(s.open, questionID)
	}
	s.mu.Unlock()
	if !ok {
		return false, 0, ErrQuestionExpired
	}

	if choice != q.Correct {
		return false, 0, nil
	}
	if err := s.Users.AdjustDragons(ctx, playerID, q.Points); err != nil {
		return true, 0, fmt.Errorf("games: credit reward: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("question answered", "user_id", playerID, "question_id", questionID, "kind", q.Kind, "reward", q.Points)
	}
	return true, q.Points, nil
}

func (s *Service) expireLocked() {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cutoff := s.now().Add(-ttl)
	for id, q := range s.open {
		if q.IssuedAt.Before(cutoff) {
			delete(s.open, id)
		}
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Fallback returns the canned question served when generation fails.
func Fallback(kind Kind) Question {
	switch kind {
	case KindPuzzle:
		return Question{
			Kind:    KindPuzzle,
			Text:    "I am a house with no doors or windows. What am I?",
			Options: [4]string{"An egg", "A tent", "A cave", "A ship"},
			Correct: 0,
			Points:  QuestionPoints,
		}
	case KindKnowledge:
		return Question{
			Kind:    KindKnowledge,
			Text:    "Which planet is known as the Red Planet?",
			Options: [4]string{"Mars", "Venus", "Jupiter", "Mercury"},
			Correct: 0,
			Points:  QuestionPoints,
		}
	default:
		return Question{
			Kind:    KindMath,
			Text:    "What is 15 + 27?",
			Options: [4]string{"42", "32", "52", "35"},
			Correct: 0,
			Points:  QuestionPoints,
		}
	}
}
