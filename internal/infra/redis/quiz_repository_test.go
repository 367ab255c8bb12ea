package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "capitals",
		Name: "Capitals",
		Questions: []domain.Question{
			{ID: "0", Text: "Paris", Answer: domain.Point(48.8566, 2.3522)},
			{ID: "1", Text: "Tokyo", Answer: domain.Point(35.6762, 139.6503)},
		},
	}
}

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"capitals": sampleQuiz()})}
	repo := NewQuizRepository(client, loader, time.Minute, nil)

	quiz, err := repo.GetQuiz(context.Background(), "capitals")
	require.NoError(t, err)
	assert.Equal(t, sampleQuiz(), quiz)
	assert.True(t, mr.Exists("quiz:template:capitals"))

	// second call is served from Redis
	quiz, err = repo.GetQuiz(context.Background(), "capitals")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", quiz.Questions[1].Text)
	assert.EqualValues(t, 1, loader.calls.Load())

	ttl := mr.TTL("quiz:template:capitals")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+6*time.Second)

	mr.FastForward(2 * time.Minute)
	_, err = repo.GetQuiz(context.Background(), "capitals")
	require.NoError(t, err)
	assert.EqualValues(t, 2, loader.calls.Load())
}

func TestQuizRepositoryDoesNotCacheMisses(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"capitals": sampleQuiz()})}
	repo := NewQuizRepository(client, loader, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.GetQuiz(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
	assert.False(t, mr.Exists("quiz:template:nope"))

	_, err = repo.GetQuiz(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
	assert.EqualValues(t, 2, loader.calls.Load())
}

func TestQuizRepositoryIgnoresCorruptEntries(t *testing.T) {
	mr, client := newClient(t)
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"capitals": sampleQuiz()})}
	repo := NewQuizRepository(client, loader, time.Minute, nil)
	require.NoError(t, mr.Set("quiz:template:capitals", "{not json"))

	quiz, err := repo.GetQuiz(context.Background(), "capitals")
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 2)
	assert.EqualValues(t, 1, loader.calls.Load())
}
