package domain

import (
	"math/rand"
	"time"
)

// QuizState is the single source of truth for one in-progress quiz. It is
// created on quiz start, mutated sequentially by answer and advance events,
// and discarded once the result has been scored (or the player walks away).
type QuizState struct {
	Questions    []Question    `json:"questions"`
	Answers      []string      `json:"answers"` // "" means unset
	CurrentIndex int           `json:"currentIndex"`
	StartedAt    time.Time     `json:"startedAt"`
	TimeBudget   time.Duration `json:"timeBudget"` // 0 means no timer
}

// NewQuizState builds a fresh state over the given questions with all answer
// slots unset and the cursor on the first question.
func NewQuizState(questions []Question, timeBudget time.Duration, now time.Time) *QuizState {
	return &QuizState{
		Questions:    questions,
		Answers:      make([]string, len(questions)),
		CurrentIndex: 0,
		StartedAt:    now,
		TimeBudget:   timeBudget,
	}
}

// RecordAnswer sets the answer slot for the question at index. A slot is
// written at most once and only with one of that question's option strings;
// no other field changes.
func (s *QuizState) RecordAnswer(index int, answer string) error {
	if index < 0 || index >= len(s.Questions) {
		return ErrInvalidOption
	}
	if s.Answers[index] != "" {
		return ErrAlreadyAnswered
	}
	if !s.Questions[index].HasOption(answer) {
		return ErrInvalidOption
	}
	s.Answers[index] = answer
	return nil
}

// Advance moves the cursor to the next question. Past the last question the
// cursor pins at len(Questions); it never moves backward.
func (s *QuizState) Advance() {
	if s.CurrentIndex < len(s.Questions) {
		s.CurrentIndex++
	}
}

// Completed reports whether the cursor has moved past the last question.
func (s *QuizState) Completed() bool {
	return s.CurrentIndex >= len(s.Questions)
}

// IsExpired reports whether the quiz's time budget has elapsed at now.
// A zero budget never expires.
func (s *QuizState) IsExpired(now time.Time) bool {
	if s.TimeBudget <= 0 {
		return false
	}
	return now.Sub(s.StartedAt) >= s.TimeBudget
}

// Remaining returns how much of the time budget is left at now. It is zero
// when the budget is exhausted and zero when no budget is set.
func (s *QuizState) Remaining(now time.Time) time.Duration {
	if s.TimeBudget <= 0 {
		return 0
	}
	left := s.TimeBudget - now.Sub(s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// ShuffledOptions returns the option set of the question at index in a fresh
// random order. The multiset is always exactly {correct} plus the incorrect
// answers; the order is recomputed per call and carries no meaning.
func (s *QuizState) ShuffledOptions(index int, rnd *rand.Rand) []string {
	if index < 0 || index >= len(s.Questions) {
		return nil
	}
	options := s.Questions[index].Options()
	rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// Scorecard is the three-bucket outcome of a quiz. Unanswered slots never
// count as incorrect.
type Scorecard struct {
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
	Unanswered int `json:"unanswered"`
	Total      int `json:"total"`
}

// Percentage is the correct share rounded to the nearest whole percent.
func (c Scorecard) Percentage() int {
	if c.Total == 0 {
		return 0
	}
	return int(float64(c.Correct)/float64(c.Total)*100 + 0.5)
}

// Score classifies every answer slot. It is pure and safe to call mid-quiz;
// slots not yet reached simply count as unanswered.
func Score(s *QuizState) Scorecard {
	card := Scorecard{Total: len(s.Questions)}
	for i, question := range s.Questions {
		switch {
		case s.Answers[i] == "":
			card.Unanswered++
		case s.Answers[i] == question.CorrectAnswer:
			card.Correct++
		default:
			card.Incorrect++
		}
	}
	return card
}
