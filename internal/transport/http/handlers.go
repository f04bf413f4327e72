package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/app"
	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/Tarasyah/TriviaQuiz/internal/identity"
	"github.com/google/uuid"
)

const sessionCookie = "quiz_session"

// API exposes the quiz over plain HTTP: one route per question position,
// results and history routes, and the entry route that seeds a quiz. It
// mirrors the page navigation of the web client.
type API struct {
	service       *app.QuizService
	verifier      identity.Verifier
	defaultAmount int
	autoAdvance   time.Duration
}

func NewAPI(service *app.QuizService, verifier identity.Verifier, defaultAmount int, autoAdvance time.Duration) *API {
	if defaultAmount <= 0 {
		defaultAmount = 10
	}
	return &API{
		service:       service,
		verifier:      verifier,
		defaultAmount: defaultAmount,
		autoAdvance:   autoAdvance,
	}
}

// Router wires all routes, including the websocket play channel.
func (a *API) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/quiz/start", a.handleStart)
	mux.HandleFunc("GET /api/quiz/{number}", a.handleQuestion)
	mux.HandleFunc("POST /api/quiz/{number}/answer", a.handleAnswer)
	mux.HandleFunc("POST /api/quiz/advance", a.handleAdvance)
	mux.HandleFunc("POST /api/quiz/abandon", a.handleAbandon)
	mux.HandleFunc("GET /api/results", a.handleResults)
	mux.HandleFunc("GET /api/history", a.handleHistoryList)
	mux.HandleFunc("DELETE /api/history/{id}", a.handleHistoryRemove)
	mux.HandleFunc("/ws", NewPlayHandler(a.service, a.verifier, a.defaultAmount, a.autoAdvance).ServeWS)
	return mux
}

type startResponse struct {
	Session  string           `json:"session"`
	Question app.QuestionView `json:"question"`
}

func (a *API) handleStart(w http.ResponseWriter, r *http.Request) {
	amount := a.defaultAmount
	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be a positive integer"})
			return
		}
		amount = parsed
	}

	var timeBudget time.Duration
	if raw := r.URL.Query().Get("time"); raw != "" && raw != "null" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "time must be seconds or null"})
			return
		}
		timeBudget = time.Duration(seconds) * time.Second
	}

	sessionID := uuid.NewString()
	if _, err := a.service.StartQuiz(r.Context(), sessionID, amount, timeBudget); err != nil {
		a.writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
	})

	view, err := a.service.Question(r.Context(), sessionID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{Session: sessionID, Question: view})
}

func (a *API) handleQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.session(w, r)
	if !ok {
		return
	}
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question number must be a positive integer"})
		return
	}

	view, err := a.service.Question(r.Context(), sessionID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if view.Number != number {
		// Stale route; tell the client where the quiz actually is.
		writeJSON(w, http.StatusConflict, currentResponse{Current: view.Number})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type currentResponse struct {
	Current int `json:"current"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (a *API) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.session(w, r)
	if !ok {
		return
	}
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question number must be a positive integer"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answer == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answer is required"})
		return
	}

	feedback, err := a.service.SubmitAnswer(r.Context(), sessionID, number, req.Answer)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

type advanceResponse struct {
	Completed bool `json:"completed"`
	Next      int  `json:"next,omitempty"`
}

func (a *API) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.session(w, r)
	if !ok {
		return
	}
	next, completed, err := a.service.Advance(r.Context(), sessionID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{Completed: completed, Next: next})
}

func (a *API) handleAbandon(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.service.Abandon(r.Context(), sessionID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleResults(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := a.session(w, r)
	if !ok {
		return
	}
	outcome, err := a.service.Finish(r.Context(), sessionID, a.identity(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	order := domain.HistoryOrder(r.URL.Query().Get("order"))
	entries, err := a.service.History(r.Context(), a.identity(r), order)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleHistoryRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.service.RemoveHistory(r.Context(), a.identity(r), id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no quiz in progress"})
		return "", false
	}
	return cookie.Value, true
}

// identity resolves the bearer token; a missing or invalid token yields an
// anonymous identity, never an error, so unauthenticated play keeps working.
func (a *API) identity(r *http.Request) domain.Identity {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return domain.Identity{}
	}
	id, err := a.verifier.Verify(token)
	if err != nil {
		return domain.Identity{}
	}
	return id
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no quiz in progress"})
	case errors.Is(err, domain.ErrNoQuestions):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "could not load trivia questions, please try again later"})
	case errors.Is(err, domain.ErrAlreadyAnswered):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "question already answered"})
	case errors.Is(err, domain.ErrInvalidOption):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answer is not one of the question's options"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history entry not found"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not allowed"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
