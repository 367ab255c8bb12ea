package app

import (
	"context"
	"time"

	"geoquiz-service/internal/domain"
)

// SessionTx is the view of one session's documents inside a store transaction.
// Reads see a consistent snapshot; writes are buffered and applied only on commit.
type SessionTx interface {
	// Session returns the session document or domain.ErrSessionNotFound.
	Session() (domain.QuizSession, error)
	// State returns the quiz state document or domain.ErrStateNotFound.
	State() (domain.QuizState, error)
	PutSession(session domain.QuizSession)
	PutState(state domain.QuizState)
	// AppendAnswers adds answers to the quiz state, skipping exact duplicates.
	AppendAnswers(answers ...domain.GivenAnswer) error
}

// SessionStore abstracts the transactional document store holding sessions
// and their quiz states (in-memory, Redis, etc).
type SessionStore interface {
	// CreateSession stores a new session and assigns its id.
	CreateSession(ctx context.Context, session domain.QuizSession) (domain.QuizSession, error)
	// GetSession reads the client-visible session document.
	GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error)
	// RunInTx runs fn against a snapshot of the session's documents and commits its
	// writes atomically. fn may run more than once when a concurrent commit wins;
	// it must not have side effects outside tx.
	RunInTx(ctx context.Context, sessionID string, fn func(tx SessionTx) error) error
	// Subscribe streams the session document after every committed change to it.
	// The caller must invoke the returned cancel function to avoid leaks.
	Subscribe(ctx context.Context, sessionID string) (<-chan domain.QuizSession, func(), error)
}

// SessionSweeper is the slice of the store the retention sweep needs.
type SessionSweeper interface {
	CreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// Delete removes the session and its quiz state, returning what was deleted.
	Delete(ctx context.Context, sessionID string) (domain.QuizSession, *domain.QuizState, error)
}

// QuizRepository loads quiz templates (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// EventPublisher receives lifecycle events after their transaction committed.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SessionEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.SessionEvent) error { return nil }
