package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/app"
	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/Tarasyah/TriviaQuiz/internal/identity"
	"github.com/Tarasyah/TriviaQuiz/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketPlayFlow(t *testing.T) {
	server, verifier := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?amount=3&token=" + verifier.Token("alice")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	event := readEvent(t, conn)
	if event.Type != "question" || event.Question == nil || event.Question.Number != 1 {
		t.Fatalf("expected first question, got %+v", event)
	}

	answers := []string{"Mars", "1991", "Astana"}
	for i, answer := range answers {
		writeMessage(t, conn, map[string]any{
			"type":    "answer",
			"payload": map[string]any{"answer": answer},
		})

		event = readEvent(t, conn)
		if event.Type != "answerResult" || event.Answer == nil {
			t.Fatalf("expected answerResult for question %d, got %+v", i+1, event)
		}
		if (event.Answer.Correct && answer == "1991") || (!event.Answer.Correct && answer != "1991") {
			t.Fatalf("wrong correctness for %q: %+v", answer, event.Answer)
		}

		// Auto-advance is immediate in tests; the next event is either the
		// following question or the final result.
		event = readEvent(t, conn)
		if i < len(answers)-1 {
			if event.Type != "question" || event.Question.Number != i+2 {
				t.Fatalf("expected question %d, got %+v", i+2, event)
			}
		}
	}

	if event.Type != "complete" || event.Reason != "finished" || event.Outcome == nil {
		t.Fatalf("expected complete event, got %+v", event)
	}
	if event.Outcome.Scorecard != (domain.Scorecard{Correct: 2, Incorrect: 1, Unanswered: 0, Total: 3}) {
		t.Fatalf("unexpected scorecard: %+v", event.Outcome.Scorecard)
	}
	if !event.Outcome.Saved {
		t.Fatal("expected result saved for authenticated player")
	}
}

func TestWebSocketExpiryPushesComplete(t *testing.T) {
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewHistoryRepository(),
		memory.NewStaticQuestionSource(testQuestions()),
	)
	verifier := identity.NewHMACVerifier("test-secret")
	api := NewAPI(service, verifier, 3, 0)
	server := httptest.NewServer(api.Router())
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?amount=3&time=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	event := readEvent(t, conn)
	if event.Type != "question" {
		t.Fatalf("expected question, got %+v", event)
	}
	if event.Question.RemainingMS < 0 {
		t.Fatalf("expected countdown on timed quiz, got %+v", event.Question)
	}

	// Let the budget lapse without answering.
	event = readEvent(t, conn)
	if event.Type != "complete" || event.Reason != "expired" {
		t.Fatalf("expected expired complete, got %+v", event)
	}
	if event.Outcome.Scorecard.Unanswered != 3 {
		t.Fatalf("expected all unanswered, got %+v", event.Outcome.Scorecard)
	}
}

func TestWebSocketClientDisconnectMidQuiz(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?amount=3&time=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	event := readEvent(t, conn)
	if event.Type != "question" {
		t.Fatalf("expected question, got %+v", event)
	}

	// Drop the connection without playing. The handler must still wind the
	// session down even with the expiry timer in flight; Close blocks until
	// every handler has returned.
	conn.Close()
	server.Close()
}

func TestWebSocketRejectsBadAmount(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?amount=-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) app.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event app.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func writeMessage(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write message: %v", err)
	}
}
