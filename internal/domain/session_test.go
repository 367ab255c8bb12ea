package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuiz() Quiz {
	return Quiz{
		ID:   "capitals",
		Name: "Capitals",
		Questions: []Question{
			{ID: "0", Text: "Paris", Answer: Point(48.8566, 2.3522)},
			{ID: "1", Text: "Tokyo", Answer: Point(35.6762, 139.6503)},
		},
	}
}

func TestSessionTransitionsAreMonotonic(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(Identity{ID: "host", Name: "Host"}, sampleQuiz(), 30, now)
	require.Equal(t, StateLobby, s.State)

	require.NoError(t, s.Start(now))
	require.Equal(t, StateInProgress, s.State)
	require.NotNil(t, s.StartedAt)

	err := s.Start(now)
	assert.True(t, errors.Is(err, ErrIllegalState))

	require.NoError(t, s.Transition(StateOver))
	assert.True(t, errors.Is(s.Transition(StateOver), ErrIllegalState))
	assert.True(t, errors.Is(s.Transition(StateLobby), ErrIllegalState))
}

func TestAddParticipantOnlyInLobby(t *testing.T) {
	now := time.Now()
	s := NewSession(Identity{ID: "host", Name: "Host"}, sampleQuiz(), 30, now)

	added, err := s.AddParticipant(Player{ID: "a", Name: "Ann"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddParticipant(Player{ID: "a", Name: "Ann again"})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, s.Participants, 1)
	assert.Equal(t, "Ann", s.Participants[0].Name)

	require.NoError(t, s.Start(now))
	_, err = s.AddParticipant(Player{ID: "b", Name: "Bob"})
	assert.ErrorIs(t, err, ErrNotLobby)
}

func TestOpenQuestionAndReveal(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	quiz := sampleQuiz()
	s := NewSession(Identity{ID: "host", Name: "Host"}, quiz, 45, now)

	s.OpenQuestion(quiz.Questions[0], 0, now)
	require.NotNil(t, s.CurrentQuestion)
	assert.Equal(t, now.Add(45*time.Second), s.CurrentQuestion.Deadline)
	assert.False(t, s.CurrentQuestion.Closed())
	assert.False(t, s.IsLastQuestion())

	s.Reveal(quiz.Questions[0].Answer, nil)
	assert.True(t, s.CurrentQuestion.Closed())
	assert.NotNil(t, s.CurrentQuestion.GivenAnswers)

	s.OpenQuestion(quiz.Questions[1], 1, now)
	assert.Nil(t, s.CurrentQuestion.CorrectAnswer)
	assert.Nil(t, s.CurrentQuestion.GivenAnswers)
	assert.True(t, s.IsLastQuestion())
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	quiz := sampleQuiz()
	s := NewSession(Identity{ID: "host", Name: "Host"}, quiz, 30, now)
	_, _ = s.AddParticipant(Player{ID: "a", Name: "Ann"})
	s.OpenQuestion(quiz.Questions[0], 0, now)
	s.Reveal(quiz.Questions[0].Answer, []GivenAnswer{{QuestionID: "0", ParticipantID: "a"}})

	c := s.Clone()
	c.Participants[0].Name = "changed"
	c.CurrentQuestion.CorrectAnswer.Coordinates[0].Lat = 0
	c.CurrentQuestion.GivenAnswers[0].ParticipantID = "z"

	assert.Equal(t, "Ann", s.Participants[0].Name)
	assert.Equal(t, 48.8566, s.CurrentQuestion.CorrectAnswer.Coordinates[0].Lat)
	assert.Equal(t, "a", s.CurrentQuestion.GivenAnswers[0].ParticipantID)
}

func TestValidation(t *testing.T) {
	assert.ErrorIs(t, ValidateAnswerTimeLimit(4), ErrValidation)
	assert.ErrorIs(t, ValidateAnswerTimeLimit(181), ErrValidation)
	assert.NoError(t, ValidateAnswerTimeLimit(5))
	assert.NoError(t, ValidateAnswerTimeLimit(180))

	assert.ErrorIs(t, Coordinate{Lat: 91}.Validate(), ErrValidation)
	assert.ErrorIs(t, Coordinate{Lng: -181}.Validate(), ErrValidation)
	assert.NoError(t, Coordinate{Lat: -90, Lng: 180}.Validate())

	assert.ErrorIs(t, Geometry{Type: GeometryPolygon, Coordinates: []Coordinate{{}, {}}}.Validate(), ErrValidation)
	assert.NoError(t, Point(1, 2).Validate())
}

func TestPolygonNeedsThreeDistinctVertices(t *testing.T) {
	closedSegment := Geometry{Type: GeometryPolygon, Coordinates: []Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 0}}}
	assert.ErrorIs(t, closedSegment.Validate(), ErrValidation)

	quiz := Quiz{ID: "shapes", Questions: []Question{{ID: "0", Text: "segment", Answer: closedSegment}}}
	assert.ErrorIs(t, quiz.Validate(), ErrValidation)

	triangle := Geometry{Type: GeometryPolygon, Coordinates: []Coordinate{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 0}}}
	assert.NoError(t, triangle.Validate())
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrConflict, Kind(ErrAlreadyAnswered))
	assert.Equal(t, ErrForbidden, Kind(ErrNotHost))
	assert.Equal(t, ErrNotFound, Kind(ErrQuizNotFound))
	assert.Equal(t, ErrValidation, Kind(Validationf("bad %s", "input")))
	assert.Nil(t, Kind(errors.New("other")))
}
