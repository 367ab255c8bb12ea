// Package docstore holds the transaction view shared by the session store implementations.
package docstore

import (
	"geoquiz-service/internal/domain"
)

// Tx buffers the writes of one transaction over a session and its quiz state.
// It implements app.SessionTx. Reads return deep copies so callers can mutate freely.
type Tx struct {
	session *domain.QuizSession
	state   *domain.QuizState

	sessionDirty bool
	stateDirty   bool
}

// NewTx starts a transaction view over the given snapshot. Either document may be nil.
func NewTx(session *domain.QuizSession, state *domain.QuizState) *Tx {
	tx := &Tx{}
	if session != nil {
		s := session.Clone()
		tx.session = &s
	}
	if state != nil {
		st := state.Clone()
		tx.state = &st
	}
	return tx
}

func (t *Tx) Session() (domain.QuizSession, error) {
	if t.session == nil {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return t.session.Clone(), nil
}

func (t *Tx) State() (domain.QuizState, error) {
	if t.state == nil {
		return domain.QuizState{}, domain.ErrStateNotFound
	}
	return t.state.Clone(), nil
}

func (t *Tx) PutSession(session domain.QuizSession) {
	s := session.Clone()
	t.session = &s
	t.sessionDirty = true
}

func (t *Tx) PutState(state domain.QuizState) {
	st := state.Clone()
	t.state = &st
	t.stateDirty = true
}

// AppendAnswers is a set union: answers already present, or repeated within the call, are skipped.
func (t *Tx) AppendAnswers(answers ...domain.GivenAnswer) error {
	if t.state == nil {
		return domain.ErrStateNotFound
	}
	for _, a := range answers {
		if containsAnswer(t.state.GivenAnswers, a) {
			continue
		}
		t.state.GivenAnswers = append(t.state.GivenAnswers, a)
		t.stateDirty = true
	}
	return nil
}

func containsAnswer(list []domain.GivenAnswer, a domain.GivenAnswer) bool {
	for _, existing := range list {
		if existing.Same(a) {
			return true
		}
	}
	return false
}

// Writes returns the documents to persist; a nil pointer means the document was not written.
func (t *Tx) Writes() (*domain.QuizSession, *domain.QuizState) {
	var session *domain.QuizSession
	var state *domain.QuizState
	if t.sessionDirty {
		s := t.session.Clone()
		session = &s
	}
	if t.stateDirty {
		st := t.state.Clone()
		state = &st
	}
	return session, state
}
