package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiz() domain.Quiz {
	return domain.Quiz{
		ID:        "capitals",
		Name:      "Capitals",
		Questions: []domain.Question{{ID: "0", Text: "Paris", Answer: domain.Point(48.8566, 2.3522)}},
	}
}

func create(t *testing.T, store *memory.SessionStore, at time.Time) domain.QuizSession {
	t.Helper()
	s, err := store.CreateSession(context.Background(), domain.NewSession(domain.Identity{ID: "host", Name: "Host"}, quiz(), 30, at))
	require.NoError(t, err)
	return s
}

func TestRunOnceArchivesExpiredSessions(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	store := memory.NewSessionStore()
	stats := memory.NewStatRepository()

	expired := create(t, store, now.Add(-25*time.Hour))
	fresh := create(t, store, now.Add(-time.Hour))

	sweeper := NewSweeper(store, stats, 24*time.Hour, WithClock(func() time.Time { return now }))
	removed, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetSession(context.Background(), expired.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.GetSession(context.Background(), fresh.ID)
	assert.NoError(t, err)

	archived := stats.Stats()
	require.Len(t, archived, 1)
	assert.Equal(t, expired.ID, archived[0].SessionID)
	assert.Equal(t, "Capitals", archived[0].QuizName)
	assert.Equal(t, domain.StateLobby, archived[0].FinalState)
	assert.Equal(t, 1, archived[0].QuestionCount)
	assert.Equal(t, now, archived[0].DeletedAt)

	removed, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

type failingStats struct{}

func (failingStats) RecordStat(context.Context, domain.SessionStat) error {
	return errors.New("archive down")
}

func TestRunOnceReportsArchiveFailures(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	create(t, store, now.Add(-48*time.Hour))
	create(t, store, now.Add(-48*time.Hour))

	sweeper := NewSweeper(store, failingStats{}, time.Hour, WithClock(func() time.Time { return now }))
	removed, err := sweeper.RunOnce(context.Background())
	assert.Equal(t, 2, removed)
	assert.ErrorContains(t, err, "archive down")
}

func TestStartRejectsBadSpec(t *testing.T) {
	sweeper := NewSweeper(memory.NewSessionStore(), nil, time.Hour)
	_, err := sweeper.Start(context.Background(), "every now and then")
	assert.Error(t, err)

	stop, err := sweeper.Start(context.Background(), "@every 1h")
	require.NoError(t, err)
	stop()
}
