package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects NaN and out-of-range coordinates.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return Validationf("coordinate must be finite")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return Validationf("latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return Validationf("longitude %v out of range [-180, 180]", c.Lng)
	}
	return nil
}

// GeometryType distinguishes point and polygon ground truths.
type GeometryType string

const (
	GeometryPoint   GeometryType = "point"
	GeometryPolygon GeometryType = "polygon"
)

// Geometry is the ground truth of a question. A point has exactly one coordinate,
// a polygon has an outer ring of at least three coordinates (closing vertex optional).
type Geometry struct {
	Type        GeometryType `json:"type"`
	Coordinates []Coordinate `json:"coordinates"`
}

// Point builds a point geometry.
func Point(lat, lng float64) Geometry {
	return Geometry{Type: GeometryPoint, Coordinates: []Coordinate{{Lat: lat, Lng: lng}}}
}

// Validate checks the geometry shape and every vertex.
func (g Geometry) Validate() error {
	switch g.Type {
	case GeometryPoint:
		if len(g.Coordinates) != 1 {
			return Validationf("point geometry needs exactly one coordinate, got %d", len(g.Coordinates))
		}
	case GeometryPolygon:
		if n := g.distinctVertices(); n < 3 {
			return Validationf("polygon geometry needs at least three distinct vertices, got %d", n)
		}
	default:
		return Validationf("unknown geometry type %q", g.Type)
	}
	for _, c := range g.Coordinates {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// distinctVertices counts the ring's vertices, ignoring repeats such as a closing vertex.
func (g Geometry) distinctVertices() int {
	seen := make(map[Coordinate]struct{}, len(g.Coordinates))
	for _, c := range g.Coordinates {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// Clone returns a deep copy.
func (g Geometry) Clone() Geometry {
	out := Geometry{Type: g.Type}
	if g.Coordinates != nil {
		out.Coordinates = append([]Coordinate(nil), g.Coordinates...)
	}
	return out
}

// Question is one entry of a quiz template. Its ID is its index as a string.
type Question struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Answer Geometry `json:"answer"`
}

// Quiz is an immutable, author-owned template.
type Quiz struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Questions   []Question `json:"questions"`
	Private     bool       `json:"private"`
	AuthorID    string     `json:"authorId"`
}

// Validate checks that the template can be played.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return Validationf("quiz id is required")
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if err := question.Answer.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		if question.ID == "" {
			continue
		}
		if _, dup := seen[question.ID]; dup {
			return Validationf("duplicate question id %q", question.ID)
		}
		seen[question.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (q Quiz) Clone() Quiz {
	out := q
	if q.Questions != nil {
		out.Questions = make([]Question, len(q.Questions))
		for i, question := range q.Questions {
			question.Answer = question.Answer.Clone()
			out.Questions[i] = question
		}
	}
	return out
}

// QuestionIndex returns the position of the question with the given id, or -1.
func (q Quiz) QuestionIndex(questionID string) int {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// QuestionID derives the stable id of the question at index i.
func QuestionID(i int) string {
	return strconv.Itoa(i)
}

// Identity is the verified caller as supplied by the identity provider.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// Player is a host or participant entry in a session document.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MapDescriptor selects the basemap clients render.
type MapDescriptor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Style string `json:"style,omitempty"`
}

// DefaultMap is used until the host picks another basemap.
var DefaultMap = MapDescriptor{ID: "world", Name: "World"}

// QuizDetails is the snapshot of the template taken when the session is created.
type QuizDetails struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	QuestionCount int    `json:"questionCount"`
}

// DetailsOf snapshots a quiz template.
func DetailsOf(q Quiz) QuizDetails {
	return QuizDetails{
		ID:            q.ID,
		Name:          q.Name,
		Description:   q.Description,
		Language:      q.Language,
		QuestionCount: len(q.Questions),
	}
}

// GivenAnswer is one recorded answer, real or synthesised.
type GivenAnswer struct {
	QuestionID    string     `json:"questionId"`
	ParticipantID string     `json:"participantId"`
	Coordinate    Coordinate `json:"coordinate"`
	Distance      float64    `json:"distance"`
	Timestamp     time.Time  `json:"timestamp"`
	Penalty       bool       `json:"penalty,omitempty"`
}

// Same reports whether two answers are exact duplicates.
func (a GivenAnswer) Same(b GivenAnswer) bool {
	return a.QuestionID == b.QuestionID &&
		a.ParticipantID == b.ParticipantID &&
		a.Coordinate == b.Coordinate &&
		a.Distance == b.Distance &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.Penalty == b.Penalty
}

// CurrentQuestion is the client-visible view of the active question.
// CorrectAnswer and GivenAnswers stay nil until the question is closed.
type CurrentQuestion struct {
	ID            string        `json:"id"`
	Index         int           `json:"index"`
	Text          string        `json:"text"`
	Deadline      time.Time     `json:"deadline"`
	CorrectAnswer *Geometry     `json:"correctAnswer,omitempty"`
	GivenAnswers  []GivenAnswer `json:"givenAnswers,omitempty"`
}

// Closed reports whether the correct answer has been revealed.
func (q *CurrentQuestion) Closed() bool {
	return q != nil && q.CorrectAnswer != nil
}

// ResultEntry is one row of the cumulative standings. Lower distance ranks higher.
type ResultEntry struct {
	ParticipantID string  `json:"participantId"`
	Name          string  `json:"name"`
	Distance      float64 `json:"distance"`
}

// CorrectAnswer binds the ground truth to the question it belongs to.
type CorrectAnswer struct {
	QuestionID string   `json:"questionId"`
	Answer     Geometry `json:"answer"`
}

// QuizState is the server-internal companion of a running session.
// It is never sent to clients.
type QuizState struct {
	SessionID            string        `json:"sessionId"`
	CurrentCorrectAnswer CorrectAnswer `json:"currentCorrectAnswer"`
	GivenAnswers         []GivenAnswer `json:"givenAnswers"`
}

// AnswersFor returns the answers recorded for one question, in recording order.
func (s QuizState) AnswersFor(questionID string) []GivenAnswer {
	var out []GivenAnswer
	for _, a := range s.GivenAnswers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out
}

// HasAnswered reports whether the participant has an answer for the question.
func (s QuizState) HasAnswered(questionID, participantID string) bool {
	for _, a := range s.GivenAnswers {
		if a.QuestionID == questionID && a.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s QuizState) Clone() QuizState {
	out := s
	out.CurrentCorrectAnswer.Answer = s.CurrentCorrectAnswer.Answer.Clone()
	if s.GivenAnswers != nil {
		out.GivenAnswers = append([]GivenAnswer(nil), s.GivenAnswers...)
	}
	return out
}

// SessionStat is the archival summary written when a session is deleted.
type SessionStat struct {
	SessionID        string       `json:"sessionId"`
	QuizID           string       `json:"quizId"`
	QuizName         string       `json:"quizName"`
	HostID           string       `json:"hostId"`
	ParticipantCount int          `json:"participantCount"`
	QuestionCount    int          `json:"questionCount"`
	AnswerCount      int          `json:"answerCount"`
	FinalState       SessionState `json:"finalState"`
	CreatedAt        time.Time    `json:"createdAt"`
	StartedAt        *time.Time   `json:"startedAt,omitempty"`
	DeletedAt        time.Time    `json:"deletedAt"`
}

// StatOf summarises a session and its state (which may be nil for lobby sessions).
func StatOf(s QuizSession, state *QuizState, deletedAt time.Time) SessionStat {
	stat := SessionStat{
		SessionID:        s.ID,
		QuizID:           s.QuizDetails.ID,
		QuizName:         s.QuizDetails.Name,
		HostID:           s.Host.ID,
		ParticipantCount: len(s.Participants),
		QuestionCount:    s.QuizDetails.QuestionCount,
		FinalState:       s.State,
		CreatedAt:        s.CreatedAt,
		StartedAt:        s.StartedAt,
		DeletedAt:        deletedAt,
	}
	if state != nil {
		stat.AnswerCount = len(state.GivenAnswers)
	}
	return stat
}

// EventType names a session lifecycle event.
type EventType string

const (
	EventSessionStarted EventType = "session.started"
	EventQuestionClosed EventType = "question.closed"
	EventSessionOver    EventType = "session.over"
)

// SessionEvent is published after a committed lifecycle transition.
type SessionEvent struct {
	ID            string        `json:"id"`
	Type          EventType     `json:"type"`
	SessionID     string        `json:"sessionId"`
	QuizID        string        `json:"quizId"`
	QuestionID    string        `json:"questionId,omitempty"`
	QuestionIndex int           `json:"questionIndex"`
	Results       []ResultEntry `json:"results,omitempty"`
	OccurredAt    time.Time     `json:"occurredAt"`
}
