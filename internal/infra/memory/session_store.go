package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/infra/docstore"
	"github.com/google/uuid"
)

const defaultMaxAttempts = 8

// SessionStore is an in-memory implementation of app.SessionStore.
// Transactions are optimistic: fn runs against a versioned snapshot and the commit
// is rejected, and fn re-run, if another commit touched the session in between.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	maxAttempts int

	// beforeCommit lets tests interleave a competing write.
	beforeCommit func(sessionID string)
}

type entry struct {
	session     domain.QuizSession
	state       *domain.QuizState
	version     uint64
	subscribers map[chan domain.QuizSession]struct{}
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithMaxAttempts bounds how often a conflicting transaction is retried.
func WithMaxAttempts(n int) StoreOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewSessionStore(opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		sessions:    make(map[string]*entry),
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) CreateSession(_ context.Context, session domain.QuizSession) (domain.QuizSession, error) {
	session = session.Clone()
	session.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &entry{
		session:     session,
		version:     1,
		subscribers: make(map[chan domain.QuizSession]struct{}),
	}
	return session.Clone(), nil
}

func (s *SessionStore) GetSession(_ context.Context, sessionID string) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return e.session.Clone(), nil
}

func (s *SessionStore) RunInTx(ctx context.Context, sessionID string, fn func(tx app.SessionTx) error) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.RLock()
		e, existed := s.sessions[sessionID]
		var (
			tx      *docstore.Tx
			version uint64
		)
		if existed {
			tx = docstore.NewTx(&e.session, e.state)
			version = e.version
		} else {
			tx = docstore.NewTx(nil, nil)
		}
		s.mu.RUnlock()

		if err := fn(tx); err != nil {
			return err
		}
		session, state := tx.Writes()
		if session == nil && state == nil {
			return nil
		}
		if !existed {
			return domain.ErrSessionNotFound
		}

		if s.beforeCommit != nil {
			s.beforeCommit(sessionID)
		}

		s.mu.Lock()
		current, ok := s.sessions[sessionID]
		if !ok {
			s.mu.Unlock()
			return domain.ErrSessionNotFound
		}
		if current.version != version {
			s.mu.Unlock()
			continue
		}
		if state != nil {
			current.state = state
		}
		if session != nil {
			current.session = *session
		}
		current.version++
		if session != nil {
			s.broadcastLocked(current)
		}
		s.mu.Unlock()
		return nil
	}
	return domain.ErrTxConflict
}

// Subscribe streams the session document, starting with the current one.
func (s *SessionStore) Subscribe(ctx context.Context, sessionID string) (<-chan domain.QuizSession, func(), error) {
	ch := make(chan domain.QuizSession, 8)

	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrSessionNotFound
	}
	e.subscribers[ch] = struct{}{}
	ch <- e.session.Clone()
	s.mu.Unlock()

	var once sync.Once
	remove := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := e.subscribers[ch]; ok {
				delete(e.subscribers, ch)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, remove)
	cancel := func() {
		stop()
		remove()
	}
	return ch, cancel, nil
}

func (s *SessionStore) broadcastLocked(e *entry) {
	for ch := range e.subscribers {
		doc := e.session.Clone()
		select {
		case ch <- doc:
		default:
			// drop the oldest pending update so a slow reader never blocks a commit
			select {
			case <-ch:
			default:
			}
			ch <- doc
		}
	}
}

// CreatedBefore lists sessions created before cutoff, oldest first.
func (s *SessionStore) CreatedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type aged struct {
		id        string
		createdAt time.Time
	}
	var found []aged
	for id, e := range s.sessions {
		if e.session.CreatedAt.Before(cutoff) {
			found = append(found, aged{id: id, createdAt: e.session.CreatedAt})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].createdAt.Before(found[j].createdAt) })

	ids := make([]string, 0, len(found))
	for _, f := range found {
		ids = append(ids, f.id)
	}
	return ids, nil
}

// Delete drops a session with its quiz state and closes its subscriptions.
func (s *SessionStore) Delete(_ context.Context, sessionID string) (domain.QuizSession, *domain.QuizState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, nil, domain.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
	return e.session, e.state, nil
}
