package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/app"
	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/Tarasyah/TriviaQuiz/internal/identity"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PlayHandler upgrades a connection and plays one quiz over it. The server
// pushes question, answerResult, and complete events; the client sends
// answer and advance messages. When a time budget is set the server enforces
// it and pushes complete with reason "expired".
type PlayHandler struct {
	service       *app.QuizService
	verifier      identity.Verifier
	defaultAmount int
	autoAdvance   time.Duration
	upgrader      websocket.Upgrader
}

func NewPlayHandler(service *app.QuizService, verifier identity.Verifier, defaultAmount int, autoAdvance time.Duration) *PlayHandler {
	return &PlayHandler{
		service:       service,
		verifier:      verifier,
		defaultAmount: defaultAmount,
		autoAdvance:   autoAdvance,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

// ServeWS wires one websocket connection to a fresh play session.
func (h *PlayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	amount := h.defaultAmount
	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "amount must be a positive integer", http.StatusBadRequest)
			return
		}
		amount = parsed
	}
	var timeBudget time.Duration
	if raw := r.URL.Query().Get("time"); raw != "" && raw != "null" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			http.Error(w, "time must be seconds or null", http.StatusBadRequest)
			return
		}
		timeBudget = time.Duration(seconds) * time.Second
	}

	id := domain.Identity{}
	if token := r.URL.Query().Get("token"); token != "" {
		if verified, err := h.verifier.Verify(token); err == nil {
			id = verified
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := app.NewPlaySession(r.Context(), h.service, uuid.NewString(), id, amount, timeBudget, h.autoAdvance)
	if err != nil {
		_ = conn.WriteJSON(app.Event{Type: "error", Message: "could not load trivia questions"})
		return
	}
	defer session.Close()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range session.Events() {
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				break
			}
			if event.Type == "complete" {
				break
			}
		}
		// Keep draining so a timer callback blocked on the event buffer can
		// never stall session shutdown.
		for range session.Events() {
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Answer == "" {
				// All writes go through the session's event channel so the
				// writer goroutine stays the only writer on the connection.
				log.Printf("ws: dropping invalid answer payload")
				continue
			}
			session.Answer(r.Context(), payload.Answer)
		case "advance":
			session.Advance(r.Context())
		default:
			log.Printf("ws: unsupported message type %q", inbound.Type)
		}
	}

	session.Close()
	<-writerDone
}
