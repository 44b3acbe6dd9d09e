package dto

import "shamsa/internal/domain/games"

// Question deliberately omits the correct answer index.
type Question struct {
	ID      string   `json:"id"`
	Kind    string   `json:"kind"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

type AnswerResponse struct {
	Correct bool `json:"correct"`
	Reward  int  `json:"reward"`
}

func MapQuestion(q games.Question) Question {
	return Question{
		ID:      q.ID,
		Kind:    string(q.Kind),
		Text:    q.Text,
		Options: q.Options[:],
		Points:  q.Points,
	}
}
