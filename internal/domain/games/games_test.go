package games_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/games"
	"shamsa/internal/domain/user"
	"shamsa/internal/infra/storage/memory"
)

type stubGenerator struct {
	question games.Question
	err      error
	calls    int
}

func (g *stubGenerator) Generate(ctx context.Context, kind games.Kind, age int) (games.Question, error) {
	g.calls++
	if g.err != nil {
		return games.Question{}, g.err
	}
	return g.question, nil
}

func newPlayer(t *testing.T, users *memory.UserRepository) *user.User {
	t.Helper()
	player, err := user.NewUser(user.CreateParams{
		ID:           "p1",
		Email:        "player@example.com",
		DisplayName:  "Player",
		PasswordHash: "hash",
		Age:          10,
	})
	require.NoError(t, err)
	require.NoError(t, users.Save(context.Background(), player))
	return player
}

func TestAskUsesGenerator(t *testing.T) {
	gen := &stubGenerator{question: games.Question{
		Text:    "2+2?",
		Options: [4]string{"3", "4", "5", "6"},
		Correct: 1,
	}}
	svc := &games.Service{Generator: gen, Users: memory.NewUserRepository()}

	q, err := svc.Ask(context.Background(), games.KindMath, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, games.KindMath, q.Kind)
	assert.Equal(t, "2+2?", q.Text)
	assert.Equal(t, games.QuestionPoints, q.Points)
}

func TestAskFallsBackOnGeneratorFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("completion down")}
	svc := &games.Service{Generator: gen, Users: memory.NewUserRepository()}

	q, err := svc.Ask(context.Background(), games.KindPuzzle, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, q.Text)
	assert.Equal(t, games.KindPuzzle, q.Kind)
}

func TestAskRejectsUnknownKind(t *testing.T) {
	svc := &games.Service{Users: memory.NewUserRepository()}
	_, err := svc.Ask(context.Background(), games.Kind("chess"), 10)
	assert.ErrorIs(t, err, games.ErrUnknownKind)
}

func TestAnswerCreditsDragonsOnce(t *testing.T) {
	users := memory.NewUserRepository()
	player := newPlayer(t, users)
	gen := &stubGenerator{question: games.Question{
		Text:    "2+2?",
		Options: [4]string{"3", "4", "5", "6"},
		Correct: 1,
	}}
	svc := &games.Service{Generator: gen, Users: users}

	q, err := svc.Ask(context.Background(), games.KindMath, player.Age)
	require.NoError(t, err)

	correct, reward, err := svc.Answer(context.Background(), player.ID, q.ID, 1)
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, games.QuestionPoints, reward)

	updated, err := users.ByID(context.Background(), player.ID)
	require.NoError(t, err)
	assert.Equal(t, games.QuestionPoints, updated.Dragons)

	// A question settles exactly once.
	_, _, err = svc.Answer(context.Background(), player.ID, q.ID, 1)
	assert.ErrorIs(t, err, games.ErrQuestionExpired)
}

func TestAnswerWrongChoiceAwardsNothing(t *testing.T) {
	users := memory.NewUserRepository()
	player := newPlayer(t, users)
	gen := &stubGenerator{question: games.Question{Correct: 2, Text: "?"}}
	svc := &games.Service{Generator: gen, Users: users}

	q, err := svc.Ask(context.Background(), games.KindKnowledge, player.Age)
	require.NoError(t, err)

	correct, reward, err := svc.Answer(context.Background(), player.ID, q.ID, 0)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.Zero(t, reward)

	updated, err := users.ByID(context.Background(), player.ID)
	require.NoError(t, err)
	assert.Zero(t, updated.Dragons)
}

func TestAnswerExpiresAfterTTL(t *testing.T) {
	users := memory.NewUserRepository()
	player := newPlayer(t, users)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &games.Service{
		Generator: &stubGenerator{question: games.Question{Correct: 0, Text: "?"}},
		Users:     users,
		TTL:       time.Minute,
		Now:       func() time.Time { return clock },
	}

	q, err := svc.Ask(context.Background(), games.KindMath, player.Age)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, _, err = svc.Answer(context.Background(), player.ID, q.ID, 0)
	assert.ErrorIs(t, err, games.ErrQuestionExpired)
}
