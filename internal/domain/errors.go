package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the quiz protocols wraps exactly one of these,
// so callers can branch with errors.Is without knowing the specific cause.
var (
	ErrNotFound        = errors.New("not found")
	ErrIllegalState    = errors.New("illegal state")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrLateSubmission  = errors.New("late submission")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = fmt.Errorf("quiz session: %w", ErrNotFound)
	// ErrStateNotFound is returned when the server-side quiz state of a running session is missing.
	ErrStateNotFound = fmt.Errorf("quiz state: %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz template could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz: %w", ErrNotFound)
	// ErrQuestionNotFound indicates the current question is not part of the quiz template.
	ErrQuestionNotFound = fmt.Errorf("question: %w", ErrNotFound)

	ErrNotLobby       = fmt.Errorf("session is not in lobby: %w", ErrIllegalState)
	ErrNotInProgress  = fmt.Errorf("session is not in progress: %w", ErrIllegalState)
	ErrNoOpenQuestion = fmt.Errorf("session has no current question: %w", ErrIllegalState)
	ErrEmptyQuiz      = fmt.Errorf("quiz has no questions: %w", ErrIllegalState)

	// ErrNotHost is returned when a host-only operation is called by someone else.
	ErrNotHost = fmt.Errorf("caller is not the host: %w", ErrForbidden)
	// ErrNotParticipant is returned when a caller tries to act before joining.
	ErrNotParticipant = fmt.Errorf("caller is not a participant: %w", ErrForbidden)

	// ErrAlreadyAnswered rejects a second answer for the same question.
	ErrAlreadyAnswered = fmt.Errorf("answer already recorded for this question: %w", ErrConflict)
	// ErrStaleQuestion is returned when the quiz state points at another question than the session.
	ErrStaleQuestion = fmt.Errorf("question is no longer current: %w", ErrConflict)
	// ErrTxConflict is returned when a store transaction kept losing to concurrent writers.
	ErrTxConflict = fmt.Errorf("too many concurrent updates: %w", ErrConflict)

	ErrDeadlinePassed = fmt.Errorf("answer deadline has passed: %w", ErrLateSubmission)

	ErrMissingIdentity = fmt.Errorf("caller identity is required: %w", ErrUnauthenticated)
)

// Validationf builds an ErrValidation error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Kind returns the taxonomy kind wrapped by err, or nil if err is outside it.
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound,
		ErrIllegalState,
		ErrForbidden,
		ErrConflict,
		ErrLateSubmission,
		ErrValidation,
		ErrUnauthenticated,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
