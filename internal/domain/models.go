package domain

import "time"

// Difficulty levels reported by the trivia source.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is a single multiple-choice question. Text fields are stored
// exactly as the source produced them after transport decoding; nothing
// downstream re-encodes or mutates them.
type Question struct {
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Text             string   `json:"text"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// Options returns the full option set for the question, correct answer last.
// Presentation layers shuffle a copy; the stored order never changes.
func (q Question) Options() []string {
	options := make([]string, 0, len(q.IncorrectAnswers)+1)
	options = append(options, q.IncorrectAnswers...)
	options = append(options, q.CorrectAnswer)
	return options
}

// HasOption reports whether answer is one of the question's option strings.
func (q Question) HasOption(answer string) bool {
	if answer == q.CorrectAnswer {
		return true
	}
	for _, incorrect := range q.IncorrectAnswers {
		if answer == incorrect {
			return true
		}
	}
	return false
}

// QuizResult is the persisted summary of one completed quiz, keyed by user.
// Entries are write-once; there is no update path.
type QuizResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Score       int       `json:"score"`
	Incorrect   int       `json:"incorrect"`
	Unanswered  int       `json:"unanswered"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completedAt"`
}

// HistoryEntry is a QuizResult as read back from storage.
type HistoryEntry = QuizResult

// HistoryOrder selects the listing direction for history queries.
type HistoryOrder string

const (
	HistoryOrderAsc  HistoryOrder = "asc"
	HistoryOrderDesc HistoryOrder = "desc"
)

// Identity is the authenticated principal attached to a request. A zero
// UserID means anonymous; anonymous players can take quizzes but have no
// history.
type Identity struct {
	UserID string
}

// Authenticated reports whether the identity can use history features.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}
