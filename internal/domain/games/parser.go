package games

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedCompletion is returned when the completion text does not follow
// the requested layout.
var ErrMalformedCompletion = errors.New("games: malformed completion text")

// Prompt builds the completion prompt for one question. The layout in the
// prompt must stay in lockstep with ParseCompletion.
func Prompt(kind Kind, age int) string {
	var subject string
	switch kind {
	case KindPuzzle:
		subject = "a short, fun riddle"
	case KindKnowledge:
		subject = "a short general-knowledge question"
	default:
		subject = "a math question"
	}
	return fmt.Sprintf(`Create %s suitable for a %d year old, with 4 options and the correct answer.

Reply in exactly this format:
Question: [question text]
A) [first option]
B) [second option]
C) [third option]
D) [fourth option]
Answer: [A, B, C or D]`, subject, age)
}

// ParseCompletion extracts a question from the completion text. The layout is
// the one requested by Prompt; missing options are padded with placeholders
// like the original client did, but a missing question or answer line is a
// hard failure that triggers the fallback path.
func ParseCompletion(text string) (Question, error) {
	var q Question
	options := make([]string, 0, 4)
	answerLine := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case hasFoldedPrefix(line, "Question:"):
			q.Text = strings.TrimSpace(line[len("Question:"):])
		case hasFoldedPrefix(line, "Answer:"):
			answerLine = strings.TrimSpace(line[len("Answer:"):])
		case len(line) >= 2 && line[1] == ')':
			if opt := strings.TrimSpace(line[2:]); opt != "" && len(options) < 4 {
				options = append(options, opt)
			}
		}
	}

	if q.Text == "" {
		return Question{}, fmt.Errorf("%w: no question line", ErrMalformedCompletion)
	}
	if answerLine == "" {
		return Question{}, fmt.Errorf("%w: no answer line", ErrMalformedCompletion)
	}
	for len(options) < 4 {
		options = append(options, fmt.Sprintf("Option %d", len(options)+1))
	}
	copy(q.Options[:], options)

	switch {
	case strings.HasPrefix(strings.ToUpper(answerLine), "A"):
		q.Correct = 0
	case strings.HasPrefix(strings.ToUpper(answerLine), "B"):
		q.Correct = 1
	case strings.HasPrefix(strings.ToUpper(answerLine), "C"):
		q.Correct = 2
	case strings.HasPrefix(strings.ToUpper(answerLine), "D"):
		q.Correct = 3
	default:
		return Question{}, fmt.Errorf("%w: unrecognized answer %q", ErrMalformedCompletion, answerLine)
	}

	q.Points = QuestionPoints
	return q, nil
}

func hasFoldedPrefix(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}
