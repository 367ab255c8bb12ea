package app

import (
	"context"
	"time"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/scoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Settings tunes the protocols.
type Settings struct {
	// AnswerSlack is how long after the deadline a submission is still accepted.
	AnswerSlack time.Duration
	// DefaultAnswerTimeLimit is the per-question limit, in seconds, of new sessions.
	DefaultAnswerTimeLimit int
	// PenaltyFallbackDistance is the penalty, in meters, when nobody answered a question.
	PenaltyFallbackDistance float64
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		AnswerSlack:             5 * time.Second,
		DefaultAnswerTimeLimit:  30,
		PenaltyFallbackDistance: scoring.DefaultFallbackDistance,
	}
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithClock replaces time.Now, mostly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *SessionService) { s.logger = logger }
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *SessionService) { s.events = publisher }
}

func WithSettings(settings Settings) Option {
	return func(s *SessionService) { s.settings = settings }
}

// SessionService contains the quiz session use cases. It keeps no session state of
// its own: every operation is one transaction against the SessionStore.
type SessionService struct {
	sessions SessionStore
	quizzes  QuizRepository
	events   EventPublisher
	settings Settings
	now      func() time.Time
	logger   *zap.Logger
}

func NewSessionService(store SessionStore, quizzes QuizRepository, opts ...Option) *SessionService {
	s := &SessionService{
		sessions: store,
		quizzes:  quizzes,
		events:   NopPublisher{},
		settings: DefaultSettings(),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionSettings are the host-configurable lobby options. Nil fields are left unchanged.
type SessionSettings struct {
	AnswerTimeLimit *int                  `json:"answerTimeLimit,omitempty"`
	Map             *domain.MapDescriptor `json:"map,omitempty"`
}

func (in SessionSettings) validate() error {
	if in.AnswerTimeLimit != nil {
		if err := domain.ValidateAnswerTimeLimit(*in.AnswerTimeLimit); err != nil {
			return err
		}
	}
	if in.Map != nil && in.Map.ID == "" {
		return domain.Validationf("map id is required")
	}
	return nil
}

func requireIdentity(caller domain.Identity) error {
	if caller.ID == "" {
		return domain.ErrMissingIdentity
	}
	return nil
}

func requireName(caller domain.Identity) error {
	if caller.Name == "" {
		return domain.Validationf("display name is required")
	}
	return nil
}

// CreateSession opens a lobby for quizID hosted by the caller.
func (s *SessionService) CreateSession(ctx context.Context, caller domain.Identity, quizID string, settings SessionSettings) (domain.QuizSession, error) {
	if err := requireIdentity(caller); err != nil {
		return domain.QuizSession{}, err
	}
	if err := requireName(caller); err != nil {
		return domain.QuizSession{}, err
	}
	if quizID == "" {
		return domain.QuizSession{}, domain.Validationf("quiz id is required")
	}
	if err := settings.validate(); err != nil {
		return domain.QuizSession{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizSession{}, err
	}

	session := domain.NewSession(caller, quiz, s.settings.DefaultAnswerTimeLimit, s.now())
	applySettings(&session, settings)
	return s.sessions.CreateSession(ctx, session)
}

// GetSession returns the client-visible session document.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	return s.sessions.GetSession(ctx, sessionID)
}

// Subscribe returns a channel that receives the session document after every change.
func (s *SessionService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.QuizSession, func(), error) {
	return s.sessions.Subscribe(ctx, sessionID)
}

// JoinSession adds the caller to the lobby. Joining again is a no-op.
func (s *SessionService) JoinSession(ctx context.Context, sessionID string, caller domain.Identity) (domain.QuizSession, error) {
	if err := requireIdentity(caller); err != nil {
		return domain.QuizSession{}, err
	}
	if err := requireName(caller); err != nil {
		return domain.QuizSession{}, err
	}

	var out domain.QuizSession
	err := s.sessions.RunInTx(ctx, sessionID, func(tx SessionTx) error {
		session, err := tx.Session()
		if err != nil {
			return err
		}
		added, err := session.AddParticipant(domain.Player{ID: caller.ID, Name: caller.Name})
		if err != nil {
			return err
		}
		if added {
			tx.PutSession(session)
		}
		out = session
		return nil
	})
	return out, err
}

// ConfigureSession changes lobby settings. Only the host may call it.
func (s *SessionService) ConfigureSession(ctx context.Context, sessionID string, caller domain.Identity, settings SessionSettings) (domain.QuizSession, error) {
	if err := requireIdentity(caller); err != nil {
		return domain.QuizSession{}, err
	}
	if err := settings.validate(); err != nil {
		return domain.QuizSession{}, err
	}

	var out domain.QuizSession
	err := s.sessions.RunInTx(ctx, sessionID, func(tx SessionTx) error {
		session, err := tx.Session()
		if err != nil {
			return err
		}
		if !session.IsHost(caller.ID) {
			return domain.ErrNotHost
		}
		if session.State != domain.StateLobby {
			return domain.ErrNotLobby
		}
		applySettings(&session, settings)
		tx.PutSession(session)
		out = session
		return nil
	})
	return out, err
}

func applySettings(session *domain.QuizSession, settings SessionSettings) {
	if settings.AnswerTimeLimit != nil {
		session.AnswerTimeLimit = *settings.AnswerTimeLimit
	}
	if settings.Map != nil {
		session.Map = *settings.Map
	}
}

// StartSession moves the lobby into progress and opens the first question.
// The quiz state holding the first ground truth is created in the same transaction.
func (s *SessionService) StartSession(ctx context.Context, sessionID string, caller domain.Identity) (domain.QuizSession, error) {
	if err := requireIdentity(caller); err != nil {
		return domain.QuizSession{}, err
	}

	var out domain.QuizSession
	err := s.sessions.RunInTx(ctx, sessionID, func(tx SessionTx) error {
		session, err := tx.Session()
		if err != nil {
			return err
		}
		if !session.IsHost(caller.ID) {
			return domain.ErrNotHost
		}
		if session.State != domain.StateLobby {
			return domain.ErrNotLobby
		}
		if _, err := tx.State(); err == nil {
			return domain.ErrNotLobby
		}

		quiz, err := s.loadQuiz(ctx, session.QuizDetails.ID)
		if err != nil {
			return err
		}
		if len(quiz.Questions) == 0 {
			return domain.ErrEmptyQuiz
		}

		now := s.now()
		if err := session.Start(now); err != nil {
			return err
		}
		first := quiz.Questions[0]
		session.OpenQuestion(first, 0, now)

		tx.PutState(domain.QuizState{
			SessionID:            session.ID,
			CurrentCorrectAnswer: domain.CorrectAnswer{QuestionID: first.ID, Answer: first.Answer},
			GivenAnswers:         []domain.GivenAnswer{},
		})
		tx.PutSession(session)
		out = session
		return nil
	})
	if err != nil {
		return domain.QuizSession{}, err
	}

	s.publish(ctx, domain.SessionEvent{
		Type:          domain.EventSessionStarted,
		SessionID:     out.ID,
		QuizID:        out.QuizDetails.ID,
		QuestionID:    out.CurrentQuestion.ID,
		QuestionIndex: out.CurrentQuestion.Index,
	})
	return out, nil
}

func (s *SessionService) publish(ctx context.Context, event domain.SessionEvent) {
	event.ID = uuid.NewString()
	event.OccurredAt = s.now()
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish session event",
			zap.String("sessionId", event.SessionID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
