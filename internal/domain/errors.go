package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no quiz is in progress for a session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrAlreadyAnswered is returned when an answer slot is already set.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidOption is returned when an answer is not one of the question's options.
	ErrInvalidOption = errors.New("answer is not a valid option")
	// ErrNoQuestions is returned when the question source produced nothing usable.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSourceUnavailable indicates a transport-level failure talking to the trivia source.
	ErrSourceUnavailable = errors.New("question source unavailable")
	// ErrSourceInvalid indicates the trivia source returned a malformed or failing payload.
	ErrSourceInvalid = errors.New("question source returned invalid data")
	// ErrNotFound is returned when a history entry does not exist for the user.
	ErrNotFound = errors.New("history entry not found")
	// ErrForbidden is returned when a history entry belongs to a different user.
	ErrForbidden = errors.New("history entry belongs to another user")
)
