package cli

import (
	"context"
	"time"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/config"
	"geoquiz-service/internal/infra/memory"
	mongoinfra "geoquiz-service/internal/infra/mongo"
	natsinfra "geoquiz-service/internal/infra/nats"
	pginfra "geoquiz-service/internal/infra/postgres"
	redisinfra "geoquiz-service/internal/infra/redis"
	"geoquiz-service/internal/retention"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultQuizTTL         = 10 * time.Minute
	defaultRetentionMaxAge = 24 * time.Hour
)

// store is what the service and the sweeper need from a session backend.
type store interface {
	app.SessionStore
	app.SessionSweeper
}

// backends holds the configured infrastructure. Every backend is optional and
// falls back to its in-memory counterpart.
type backends struct {
	quizzes   app.QuizRepository
	sessions  store
	sweeper   app.SessionSweeper
	stats     retention.StatRecorder
	publisher app.EventPublisher
	closers   []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{publisher: app.NopPublisher{}}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	b.stats = memory.NewStatRepository()

	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		loader = pginfra.NewQuizLoader(pool)

		db := openBunDB(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.stats = pginfra.NewStatRepository(db)
		logger.Info("using postgres quiz templates")
	case cfg.Mongo.URL != "":
		client, err := mongoinfra.Connect(ctx, cfg.Mongo.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		loader = mongoinfra.NewQuizLoader(client, cfg.Mongo.Database, cfg.Mongo.Collection)
		logger.Info("using mongo quiz templates", zap.String("database", cfg.Mongo.Database))
	default:
		logger.Info("no template database configured, serving sample quizzes")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, defaultQuizTTL)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.quizzes = redisinfra.NewQuizRepository(client, loader, quizTTL, logger)
		b.sessions = redisinfra.NewSessionStore(client, cfg.Game.TxMaxRetries, logger)
	} else {
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
		b.sessions = memory.NewSessionStore(memory.WithMaxAttempts(cfg.Game.TxMaxRetries))
	}
	b.sweeper = b.sessions

	if cfg.NATS.URL != "" {
		nc, err := natsinfra.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = nc.Drain() })
		b.publisher = natsinfra.NewEventPublisher(nc, cfg.NATS.SubjectPrefix)
	}

	ok = true
	return b, nil
}

func gameSettings(cfg config.Config) app.Settings {
	settings := app.DefaultSettings()
	settings.AnswerSlack = config.TTLDuration(cfg.Game.AnswerSlack, settings.AnswerSlack)
	if cfg.Game.DefaultAnswerTimeLimit > 0 {
		settings.DefaultAnswerTimeLimit = cfg.Game.DefaultAnswerTimeLimit
	}
	if cfg.Game.PenaltyFallbackDistance > 0 {
		settings.PenaltyFallbackDistance = cfg.Game.PenaltyFallbackDistance
	}
	return settings
}
