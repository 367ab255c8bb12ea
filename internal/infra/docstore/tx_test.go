package docstore

import (
	"testing"
	"time"

	"geoquiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxMissingDocuments(t *testing.T) {
	tx := NewTx(nil, nil)

	_, err := tx.Session()
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = tx.State()
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.ErrorIs(t, tx.AppendAnswers(domain.GivenAnswer{}), domain.ErrStateNotFound)

	session, state := tx.Writes()
	assert.Nil(t, session)
	assert.Nil(t, state)
}

func TestTxAppendIsSetUnion(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := domain.GivenAnswer{QuestionID: "0", ParticipantID: "p1", Distance: 10, Timestamp: ts}
	b := domain.GivenAnswer{QuestionID: "0", ParticipantID: "p2", Distance: 20, Timestamp: ts}
	tx := NewTx(nil, &domain.QuizState{SessionID: "s", GivenAnswers: []domain.GivenAnswer{a}})

	require.NoError(t, tx.AppendAnswers(a, b, b))

	_, state := tx.Writes()
	require.NotNil(t, state)
	assert.Equal(t, []domain.GivenAnswer{a, b}, state.GivenAnswers)
}

func TestTxDuplicateOnlyAppendWritesNothing(t *testing.T) {
	a := domain.GivenAnswer{QuestionID: "0", ParticipantID: "p1"}
	tx := NewTx(nil, &domain.QuizState{GivenAnswers: []domain.GivenAnswer{a}})

	require.NoError(t, tx.AppendAnswers(a))
	_, state := tx.Writes()
	assert.Nil(t, state)
}

func TestTxIsolatesSnapshot(t *testing.T) {
	snapshot := domain.QuizSession{ID: "s", Participants: []domain.Player{{ID: "p1", Name: "Ann"}}}
	tx := NewTx(&snapshot, nil)

	read, err := tx.Session()
	require.NoError(t, err)
	read.Participants[0].Name = "changed"
	read.State = domain.StateOver

	again, err := tx.Session()
	require.NoError(t, err)
	assert.Equal(t, "Ann", again.Participants[0].Name)
	assert.Equal(t, "Ann", snapshot.Participants[0].Name)

	tx.PutSession(read)
	written, _ := tx.Writes()
	require.NotNil(t, written)
	assert.Equal(t, domain.StateOver, written.State)
}
