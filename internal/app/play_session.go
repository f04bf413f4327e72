package app

import (
	"context"
	"sync"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
)

// Event is pushed to the player over the play channel.
type Event struct {
	Type     string          `json:"type"` // question | answerResult | complete | error
	Question *QuestionView   `json:"question,omitempty"`
	Answer   *AnswerFeedback `json:"answer,omitempty"`
	Outcome  *Outcome        `json:"outcome,omitempty"`
	Reason   string          `json:"reason,omitempty"` // finished | expired
	Message  string          `json:"message,omitempty"`
}

// PlaySession drives one quiz interactively: it presents questions, records
// answers, auto-advances after a short delay, and enforces the time budget
// with a timer it owns. All transitions are serialized under one mutex; the
// timers are cancelled on every transition out of the timed states, so a
// stray callback can never touch a quiz that is already finished.
type PlaySession struct {
	service     *QuizService
	sessionID   string
	identity    domain.Identity
	autoAdvance time.Duration

	mu           sync.Mutex
	finished     bool
	expiryTimer  *time.Timer
	advanceTimer *time.Timer
	events       chan Event
}

// NewPlaySession starts a fresh quiz and emits the first question. The
// returned session must be Closed by the caller.
func NewPlaySession(ctx context.Context, service *QuizService, sessionID string, identity domain.Identity, amount int, timeBudget, autoAdvance time.Duration) (*PlaySession, error) {
	state, err := service.StartQuiz(ctx, sessionID, amount, timeBudget)
	if err != nil {
		return nil, err
	}

	p := &PlaySession{
		service:     service,
		sessionID:   sessionID,
		identity:    identity,
		autoAdvance: autoAdvance,
		events:      make(chan Event, 16),
	}
	if timeBudget > 0 {
		p.expiryTimer = time.AfterFunc(state.Remaining(service.clock()), p.expire)
	}

	view := service.viewFor(state, state.CurrentIndex)
	p.events <- Event{Type: "question", Question: &view}
	return p, nil
}

// Events returns the channel the session pushes to. It is closed when the
// quiz completes, expires, or the session is closed.
func (p *PlaySession) Events() <-chan Event {
	return p.events
}

// Answer records the player's answer for the current question and schedules
// the advance. Rejected answers (already answered, unknown option) surface
// as error events and leave stored state untouched.
func (p *PlaySession) Answer(ctx context.Context, answer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}

	state, err := p.service.sessions.Load(ctx, p.sessionID)
	if err != nil {
		p.events <- Event{Type: "error", Message: err.Error()}
		return
	}

	feedback, err := p.service.SubmitAnswer(ctx, p.sessionID, state.CurrentIndex+1, answer)
	if err != nil {
		p.events <- Event{Type: "error", Message: err.Error()}
		return
	}
	p.events <- Event{Type: "answerResult", Answer: &feedback}

	if p.autoAdvance <= 0 {
		p.advanceLocked()
		return
	}
	p.advanceTimer = time.AfterFunc(p.autoAdvance, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.advanceLocked()
	})
}

// Advance moves to the next question immediately, for clients that skip the
// auto-advance delay.
func (p *PlaySession) Advance(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanceLocked()
}

func (p *PlaySession) advanceLocked() {
	if p.finished {
		return
	}
	if p.advanceTimer != nil {
		p.advanceTimer.Stop()
		p.advanceTimer = nil
	}

	ctx := context.Background()
	next, completed, err := p.service.Advance(ctx, p.sessionID)
	if err != nil {
		p.events <- Event{Type: "error", Message: err.Error()}
		return
	}
	if completed {
		p.finishLocked("finished")
		return
	}

	state, err := p.service.sessions.Load(ctx, p.sessionID)
	if err != nil {
		p.events <- Event{Type: "error", Message: err.Error()}
		return
	}
	view := p.service.viewFor(state, next-1)
	p.events <- Event{Type: "question", Question: &view}
}

// expire fires when the time budget runs out. The finished flag is the
// "does this timer still belong to the active quiz" check.
func (p *PlaySession) expire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finishLocked("expired")
}

func (p *PlaySession) finishLocked(reason string) {
	p.finished = true
	p.stopTimersLocked()

	outcome, err := p.service.Finish(context.Background(), p.sessionID, p.identity)
	if err != nil {
		p.events <- Event{Type: "error", Message: err.Error()}
		close(p.events)
		return
	}
	p.events <- Event{Type: "complete", Outcome: &outcome, Reason: reason}
	close(p.events)
}

// Close abandons the quiz if it has not finished. Safe to call more than
// once and after completion.
func (p *PlaySession) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.stopTimersLocked()
	_ = p.service.Abandon(context.Background(), p.sessionID)
	close(p.events)
}

func (p *PlaySession) stopTimersLocked() {
	if p.expiryTimer != nil {
		p.expiryTimer.Stop()
		p.expiryTimer = nil
	}
	if p.advanceTimer != nil {
		p.advanceTimer.Stop()
		p.advanceTimer = nil
	}
}
