package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/google/uuid"
)

// QuestionSource fetches a batch of multiple-choice questions from the
// external trivia provider.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, amount int) ([]domain.Question, error)
}

// SessionRepository persists the in-progress quiz state for a session so it
// survives page reloads. One blob per session ID, overwritten on start and
// removed on completion or abandonment.
type SessionRepository interface {
	Save(ctx context.Context, sessionID string, state *domain.QuizState) error
	Load(ctx context.Context, sessionID string) (*domain.QuizState, error)
	Delete(ctx context.Context, sessionID string) error
}

// HistoryRepository stores completed quiz results per user.
type HistoryRepository interface {
	Append(ctx context.Context, userID string, result domain.QuizResult) (string, error)
	List(ctx context.Context, userID string, order domain.HistoryOrder) ([]domain.HistoryEntry, error)
	Remove(ctx context.Context, userID, id string) error
}

// QuizService contains the quiz use cases: starting a quiz, presenting
// questions, recording answers, advancing, and turning a finished quiz into
// a history entry.
type QuizService struct {
	sessions SessionRepository
	history  HistoryRepository
	source   QuestionSource
	clock    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizService(sessions SessionRepository, history HistoryRepository, source QuestionSource) *QuizService {
	return NewQuizServiceWithClock(sessions, history, source, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(sessions SessionRepository, history HistoryRepository, source QuestionSource, now func() time.Time) *QuizService {
	return &QuizService{
		sessions: sessions,
		history:  history,
		source:   source,
		clock:    now,
		rnd:      rand.New(rand.NewSource(now().UnixNano())),
	}
}

// SeedShuffle makes option shuffling reproducible. Tests only; option order
// carries no meaning either way.
func (s *QuizService) SeedShuffle(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd = rand.New(rand.NewSource(seed))
}

// QuestionView is one question as presented to the player. Option order is
// freshly shuffled per view and the correct answer is never marked.
type QuestionView struct {
	Number     int      `json:"number"` // 1-based
	Total      int      `json:"total"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Answered   bool     `json:"answered"`
	// RemainingMS is the time budget left, in milliseconds; -1 when untimed.
	RemainingMS int64 `json:"remainingMs"`
}

// AnswerFeedback tells the player how a recorded answer scored.
type AnswerFeedback struct {
	Number        int    `json:"number"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
}

// Outcome is the final (or, mid-quiz, partial) result of a quiz together
// with whether the durable history write happened.
type Outcome struct {
	Scorecard  domain.Scorecard `json:"scorecard"`
	Percentage int              `json:"percentage"`
	Saved      bool             `json:"saved"`
}

// StartQuiz discards any previous quiz for the session and seeds a new one.
// Source failures surface as ErrNoQuestions so the UI lands on a "try again"
// screen instead of crashing.
func (s *QuizService) StartQuiz(ctx context.Context, sessionID string, amount int, timeBudget time.Duration) (*domain.QuizState, error) {
	questions, err := s.source.FetchQuestions(ctx, amount)
	if err != nil {
		log.Printf("question fetch failed: %v", err)
		return nil, domain.ErrNoQuestions
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	state := domain.NewQuizState(questions, timeBudget, s.clock())
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Question presents the question under the cursor. The view carries the
// 1-based position so transports can tell a stale route from the current one.
func (s *QuizService) Question(ctx context.Context, sessionID string) (QuestionView, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return QuestionView{}, err
	}
	if state.Completed() || state.IsExpired(s.clock()) {
		return QuestionView{}, domain.ErrSessionNotFound
	}

	index := state.CurrentIndex
	return s.viewFor(state, index), nil
}

func (s *QuizService) viewFor(state *domain.QuizState, index int) QuestionView {
	question := state.Questions[index]

	s.mu.Lock()
	options := state.ShuffledOptions(index, s.rnd)
	s.mu.Unlock()

	remaining := int64(-1)
	if state.TimeBudget > 0 {
		remaining = state.Remaining(s.clock()).Milliseconds()
	}
	return QuestionView{
		Number:      index + 1,
		Total:       len(state.Questions),
		Category:    question.Category,
		Difficulty:  question.Difficulty,
		Text:        question.Text,
		Options:     options,
		Answered:    state.Answers[index] != "",
		RemainingMS: remaining,
	}
}

// SubmitAnswer records the player's answer for the question at 1-based
// position number. Answering twice or with a string outside the option set
// is rejected without touching stored state.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID string, number int, answer string) (AnswerFeedback, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return AnswerFeedback{}, err
	}
	if state.Completed() || state.IsExpired(s.clock()) {
		return AnswerFeedback{}, domain.ErrSessionNotFound
	}

	index := number - 1
	if index != state.CurrentIndex {
		return AnswerFeedback{}, domain.ErrInvalidOption
	}
	if err := state.RecordAnswer(index, answer); err != nil {
		return AnswerFeedback{}, err
	}
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return AnswerFeedback{}, err
	}
	return AnswerFeedback{
		Number:        number,
		Correct:       answer == state.Questions[index].CorrectAnswer,
		CorrectAnswer: state.Questions[index].CorrectAnswer,
	}, nil
}

// Advance moves the quiz to the next question. It reports completion; the
// caller then calls Finish to score. An expired quiz reports completed
// without touching the cursor.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (next int, completed bool, err error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return 0, false, err
	}
	if state.IsExpired(s.clock()) {
		return 0, true, nil
	}

	state.Advance()
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return 0, false, err
	}
	if state.Completed() {
		return 0, true, nil
	}
	return state.CurrentIndex + 1, false, nil
}

// Finish scores the quiz, persists the result for authenticated users, and
// clears the session blob. The locally computed scorecard is always returned;
// a failed history write only flips Saved off. Calling Finish twice is safe:
// the second call finds no session.
func (s *QuizService) Finish(ctx context.Context, sessionID string, identity domain.Identity) (Outcome, error) {
	state, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	card := domain.Score(state)
	outcome := Outcome{Scorecard: card, Percentage: card.Percentage()}

	if !state.Completed() && !state.IsExpired(s.clock()) {
		// Partial scoring is well-defined; nothing is persisted or cleared.
		return outcome, nil
	}

	// Clearing the blob first makes the history append at-most-once even if
	// the client retries the finish call.
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return Outcome{}, err
	}

	if identity.Authenticated() {
		result := domain.QuizResult{
			ID:          uuid.NewString(),
			UserID:      identity.UserID,
			Score:       card.Correct,
			Incorrect:   card.Incorrect,
			Unanswered:  card.Unanswered,
			Total:       card.Total,
			CompletedAt: s.clock(),
		}
		if _, err := s.history.Append(ctx, identity.UserID, result); err != nil {
			log.Printf("history append failed for user %s: %v", identity.UserID, err)
		} else {
			outcome.Saved = true
		}
	}
	return outcome, nil
}

// Abandon drops the in-progress quiz without scoring or persisting anything.
// A missing session is not an error; walking away is a normal outcome.
func (s *QuizService) Abandon(ctx context.Context, sessionID string) error {
	err := s.sessions.Delete(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	return err
}

// History lists the user's persisted results ordered by completion time.
func (s *QuizService) History(ctx context.Context, identity domain.Identity, order domain.HistoryOrder) ([]domain.HistoryEntry, error) {
	if !identity.Authenticated() {
		return nil, domain.ErrForbidden
	}
	if order != domain.HistoryOrderAsc {
		order = domain.HistoryOrderDesc
	}
	return s.history.List(ctx, identity.UserID, order)
}

// RemoveHistory deletes a single entry owned by the user.
func (s *QuizService) RemoveHistory(ctx context.Context, identity domain.Identity, id string) error {
	if !identity.Authenticated() {
		return domain.ErrForbidden
	}
	return s.history.Remove(ctx, identity.UserID, id)
}
