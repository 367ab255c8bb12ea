package domain

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle state of a quiz session. It only moves forward.
type SessionState string

const (
	StateLobby      SessionState = "lobby"
	StateInProgress SessionState = "in-progress"
	StateOver       SessionState = "over"
)

var nextState = map[SessionState]SessionState{
	StateLobby:      StateInProgress,
	StateInProgress: StateOver,
}

// Answer time limit bounds, in seconds.
const (
	MinAnswerTimeLimit = 5
	MaxAnswerTimeLimit = 180
)

// ValidateAnswerTimeLimit checks the host-configurable limit.
func ValidateAnswerTimeLimit(seconds int) error {
	if seconds < MinAnswerTimeLimit || seconds > MaxAnswerTimeLimit {
		return Validationf("answer time limit %ds out of range [%d, %d]", seconds, MinAnswerTimeLimit, MaxAnswerTimeLimit)
	}
	return nil
}

// QuizSession is the client-visible session document.
type QuizSession struct {
	ID              string           `json:"id"`
	Host            Player           `json:"host"`
	Participants    []Player         `json:"participants"`
	State           SessionState     `json:"state"`
	AnswerTimeLimit int              `json:"answerTimeLimit"`
	Map             MapDescriptor    `json:"map"`
	QuizDetails     QuizDetails      `json:"quizDetails"`
	CurrentQuestion *CurrentQuestion `json:"currentQuestion"`
	Results         []ResultEntry    `json:"results"`
	CreatedAt       time.Time        `json:"createdAt"`
	StartedAt       *time.Time       `json:"startedAt"`
}

// NewSession builds a lobby session for the given host and template.
func NewSession(host Identity, quiz Quiz, answerTimeLimit int, now time.Time) QuizSession {
	return QuizSession{
		Host:            Player{ID: host.ID, Name: host.Name},
		Participants:    []Player{},
		State:           StateLobby,
		AnswerTimeLimit: answerTimeLimit,
		Map:             DefaultMap,
		QuizDetails:     DetailsOf(quiz),
		CreatedAt:       now,
	}
}

// Transition moves the session to the given state if that is the single legal next step.
func (s *QuizSession) Transition(to SessionState) error {
	if next, ok := nextState[s.State]; !ok || next != to {
		return fmt.Errorf("transition %s -> %s: %w", s.State, to, ErrIllegalState)
	}
	s.State = to
	return nil
}

// IsHost reports whether id is the session host.
func (s *QuizSession) IsHost(id string) bool {
	return s.Host.ID == id
}

// Participant returns the participant with the given id.
func (s *QuizSession) Participant(id string) (Player, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// AddParticipant appends a participant while the session is in the lobby.
// Joining twice is a no-op and reports false.
func (s *QuizSession) AddParticipant(p Player) (bool, error) {
	if s.State != StateLobby {
		return false, ErrNotLobby
	}
	if _, ok := s.Participant(p.ID); ok {
		return false, nil
	}
	s.Participants = append(s.Participants, p)
	return true, nil
}

// Start flips the session into progress. Opening the first question is a separate step.
func (s *QuizSession) Start(now time.Time) error {
	if s.State != StateLobby {
		return ErrNotLobby
	}
	if err := s.Transition(StateInProgress); err != nil {
		return err
	}
	started := now
	s.StartedAt = &started
	return nil
}

// OpenQuestion replaces the current question with a fresh, unrevealed one.
func (s *QuizSession) OpenQuestion(q Question, index int, now time.Time) {
	s.CurrentQuestion = &CurrentQuestion{
		ID:       q.ID,
		Index:    index,
		Text:     q.Text,
		Deadline: now.Add(time.Duration(s.AnswerTimeLimit) * time.Second),
	}
}

// Reveal closes the current question with its ground truth and the answers given for it.
func (s *QuizSession) Reveal(truth Geometry, answers []GivenAnswer) {
	revealed := truth.Clone()
	s.CurrentQuestion.CorrectAnswer = &revealed
	s.CurrentQuestion.GivenAnswers = append([]GivenAnswer{}, answers...)
}

// IsLastQuestion reports whether the current question is the last of the template.
func (s *QuizSession) IsLastQuestion() bool {
	return s.CurrentQuestion != nil && s.CurrentQuestion.Index == s.QuizDetails.QuestionCount-1
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s QuizSession) Clone() QuizSession {
	out := s
	if s.Participants != nil {
		out.Participants = append([]Player(nil), s.Participants...)
	}
	if s.Results != nil {
		out.Results = append([]ResultEntry(nil), s.Results...)
	}
	if s.StartedAt != nil {
		started := *s.StartedAt
		out.StartedAt = &started
	}
	if s.CurrentQuestion != nil {
		cq := *s.CurrentQuestion
		if cq.CorrectAnswer != nil {
			truth := cq.CorrectAnswer.Clone()
			cq.CorrectAnswer = &truth
		}
		if cq.GivenAnswers != nil {
			cq.GivenAnswers = append([]GivenAnswer(nil), cq.GivenAnswers...)
		}
		out.CurrentQuestion = &cq
	}
	return out
}
