package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/infra/docstore"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 8

// SessionStore is a Redis implementation of app.SessionStore.
// Layout:
//
//	quiz:session:{id}          session document (JSON)
//	quiz:session:{id}:state    quiz state document (JSON), never published
//	quiz:session:{id}:updates  pub/sub channel carrying the session document after each commit
//	quiz:sessions:created      sorted set of session ids scored by creation time (unix ms)
//
// Transactions WATCH both documents and commit with MULTI/EXEC, so a concurrent
// commit to either key aborts the transaction, which is then retried.
type SessionStore struct {
	client      *redis.Client
	maxAttempts int
	logger      *zap.Logger
}

func NewSessionStore(client *redis.Client, maxAttempts int, logger *zap.Logger) *SessionStore {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{client: client, maxAttempts: maxAttempts, logger: logger}
}

func sessionKey(id string) string { return "quiz:session:" + id }
func stateKey(id string) string   { return "quiz:session:" + id + ":state" }
func updatesKey(id string) string { return "quiz:session:" + id + ":updates" }

const createdIndexKey = "quiz:sessions:created"

func (s *SessionStore) CreateSession(ctx context.Context, session domain.QuizSession) (domain.QuizSession, error) {
	session = session.Clone()
	session.ID = uuid.NewString()

	data, err := sessionCodec.Encode(session)
	if err != nil {
		return domain.QuizSession{}, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, 0)
		pipe.ZAdd(ctx, createdIndexKey, redis.Z{
			Score:  float64(session.CreatedAt.UnixMilli()),
			Member: session.ID,
		})
		return nil
	})
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("get session: %w", err)
	}
	return sessionCodec.Decode(data)
}

func (s *SessionStore) RunInTx(ctx context.Context, sessionID string, fn func(tx app.SessionTx) error) error {
	sKey, stKey := sessionKey(sessionID), stateKey(sessionID)

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		var published []byte
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			session, state, err := s.load(ctx, rtx, sKey, stKey)
			if err != nil {
				return err
			}
			tx := docstore.NewTx(session, state)
			if err := fn(tx); err != nil {
				return err
			}

			newSession, newState := tx.Writes()
			if newSession == nil && newState == nil {
				return nil
			}
			if session == nil {
				return domain.ErrSessionNotFound
			}

			var sessionData, stateData []byte
			if newSession != nil {
				if sessionData, err = sessionCodec.Encode(*newSession); err != nil {
					return err
				}
			}
			if newState != nil {
				if stateData, err = stateCodec.Encode(*newState); err != nil {
					return err
				}
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if sessionData != nil {
					pipe.Set(ctx, sKey, sessionData, 0)
				}
				if stateData != nil {
					pipe.Set(ctx, stKey, stateData, 0)
				}
				return nil
			})
			if err == nil {
				published = sessionData
			}
			return err
		}, sKey, stKey)

		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("session transaction conflict, retrying",
				zap.String("sessionId", sessionID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return err
		}
		if published != nil {
			if err := s.client.Publish(ctx, updatesKey(sessionID), published).Err(); err != nil {
				// the commit stands; subscribers catch up on the next change
				s.logger.Warn("publish session update", zap.String("sessionId", sessionID), zap.Error(err))
			}
		}
		return nil
	}
	return domain.ErrTxConflict
}

func (s *SessionStore) load(ctx context.Context, rtx *redis.Tx, sKey, stKey string) (*domain.QuizSession, *domain.QuizState, error) {
	values, err := rtx.MGet(ctx, sKey, stKey).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("load session documents: %w", err)
	}

	var session *domain.QuizSession
	if raw, ok := values[0].(string); ok {
		decoded, err := sessionCodec.Decode([]byte(raw))
		if err != nil {
			return nil, nil, err
		}
		session = &decoded
	}
	var state *domain.QuizState
	if raw, ok := values[1].(string); ok {
		decoded, err := stateCodec.Decode([]byte(raw))
		if err != nil {
			return nil, nil, err
		}
		state = &decoded
	}
	return session, state, nil
}

// Subscribe streams the session document, starting with the current one.
func (s *SessionStore) Subscribe(ctx context.Context, sessionID string) (<-chan domain.QuizSession, func(), error) {
	subCtx, cancelSub := context.WithCancel(ctx)
	pubsub := s.client.Subscribe(subCtx, updatesKey(sessionID))
	// wait for the subscription to be confirmed so no commit after the snapshot is missed
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancelSub()
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe session %s: %w", sessionID, err)
	}

	initial, err := s.GetSession(subCtx, sessionID)
	if err != nil {
		cancelSub()
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan domain.QuizSession, 8)
	out <- initial
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				doc, err := sessionCodec.Decode([]byte(msg.Payload))
				if err != nil {
					s.logger.Error("decode session update", zap.String("sessionId", sessionID), zap.Error(err))
					continue
				}
				select {
				case out <- doc:
				case <-subCtx.Done():
					return
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	cancel := func() {
		cancelSub()
		_ = pubsub.Close()
		<-done
	}
	return out, cancel, nil
}

// CreatedBefore lists sessions created before cutoff, oldest first.
func (s *SessionStore) CreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, createdIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// Delete removes the session, its quiz state and its index entry in one transaction.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) (domain.QuizSession, *domain.QuizState, error) {
	sKey, stKey := sessionKey(sessionID), stateKey(sessionID)

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		var (
			session *domain.QuizSession
			state   *domain.QuizState
		)
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			var err error
			session, state, err = s.load(ctx, rtx, sKey, stKey)
			if err != nil {
				return err
			}
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, sKey, stKey)
				pipe.ZRem(ctx, createdIndexKey, sessionID)
				return nil
			})
			return err
		}, sKey, stKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.QuizSession{}, nil, fmt.Errorf("delete session: %w", err)
		}
		if session == nil {
			return domain.QuizSession{}, nil, domain.ErrSessionNotFound
		}
		return *session, state, nil
	}
	return domain.QuizSession{}, nil, domain.ErrTxConflict
}
