package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URL        string `yaml:"url"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Game      Game      `yaml:"game"`
	Auth      Auth      `yaml:"auth"`
	Retention Retention `yaml:"retention"`
	Log       Log       `yaml:"log"`
}

// Game tunes the quiz protocols.
type Game struct {
	AnswerSlack             string  `yaml:"answer_slack"`
	DefaultAnswerTimeLimit  int     `yaml:"default_answer_time_limit"`
	PenaltyFallbackDistance float64 `yaml:"penalty_fallback_distance"`
	TxMaxRetries            int     `yaml:"tx_max_retries"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type Retention struct {
	Schedule string `yaml:"schedule"`
	MaxAge   string `yaml:"max_age"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Mongo.Database = "geoquiz"
	cfg.Mongo.Collection = "quizzes"
	cfg.Quiz.TTL = "10m"
	cfg.Game = Game{
		AnswerSlack:             "5s",
		DefaultAnswerTimeLimit:  30,
		PenaltyFallbackDistance: 20_000_000,
		TxMaxRetries:            8,
	}
	cfg.Retention = Retention{Schedule: "@every 1h", MaxAge: "24h"}
	cfg.Log = Log{Level: "info"}
	return cfg
}

// Load reads YAML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.Game.DefaultAnswerTimeLimit < 5 || c.Game.DefaultAnswerTimeLimit > 180 {
		return fmt.Errorf("game.default_answer_time_limit must be within [5, 180], got %d", c.Game.DefaultAnswerTimeLimit)
	}
	if c.Game.PenaltyFallbackDistance <= 0 {
		return fmt.Errorf("game.penalty_fallback_distance must be positive")
	}
	if c.Game.TxMaxRetries <= 0 {
		return fmt.Errorf("game.tx_max_retries must be positive")
	}
	for key, raw := range map[string]string{
		"game.answer_slack": c.Game.AnswerSlack,
		"quiz.ttl":          c.Quiz.TTL,
		"retention.max_age": c.Retention.MaxAge,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", key, raw)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
