package postgres

import (
	"context"
	"fmt"
	"time"

	"geoquiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type sessionStatModel struct {
	bun.BaseModel `bun:"table:session_stats"`

	SessionID        string     `bun:"session_id,pk"`
	QuizID           string     `bun:"quiz_id,notnull"`
	QuizName         string     `bun:"quiz_name,notnull"`
	HostID           string     `bun:"host_id,notnull"`
	ParticipantCount int        `bun:"participant_count,notnull"`
	QuestionCount    int        `bun:"question_count,notnull"`
	AnswerCount      int        `bun:"answer_count,notnull"`
	FinalState       string     `bun:"final_state,notnull"`
	CreatedAt        time.Time  `bun:"created_at,notnull"`
	StartedAt        *time.Time `bun:"started_at"`
	DeletedAt        time.Time  `bun:"deleted_at,notnull"`
}

func toModel(s domain.SessionStat) *sessionStatModel {
	return &sessionStatModel{
		SessionID:        s.SessionID,
		QuizID:           s.QuizID,
		QuizName:         s.QuizName,
		HostID:           s.HostID,
		ParticipantCount: s.ParticipantCount,
		QuestionCount:    s.QuestionCount,
		AnswerCount:      s.AnswerCount,
		FinalState:       string(s.FinalState),
		CreatedAt:        s.CreatedAt,
		StartedAt:        s.StartedAt,
		DeletedAt:        s.DeletedAt,
	}
}

func (m sessionStatModel) toDomain() domain.SessionStat {
	return domain.SessionStat{
		SessionID:        m.SessionID,
		QuizID:           m.QuizID,
		QuizName:         m.QuizName,
		HostID:           m.HostID,
		ParticipantCount: m.ParticipantCount,
		QuestionCount:    m.QuestionCount,
		AnswerCount:      m.AnswerCount,
		FinalState:       domain.SessionState(m.FinalState),
		CreatedAt:        m.CreatedAt,
		StartedAt:        m.StartedAt,
		DeletedAt:        m.DeletedAt,
	}
}

// StatRepository archives summaries of deleted sessions in the session_stats table.
type StatRepository struct {
	db *bun.DB
}

func NewStatRepository(db *bun.DB) *StatRepository {
	return &StatRepository{db: db}
}

// RecordStat inserts the summary; recording the same session twice keeps the first row.
func (r *StatRepository) RecordStat(ctx context.Context, stat domain.SessionStat) error {
	_, err := r.db.NewInsert().
		Model(toModel(stat)).
		On("CONFLICT (session_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("record session stat: %w", err)
	}
	return nil
}

// StatsForQuiz lists archived sessions of a quiz, newest first.
func (r *StatRepository) StatsForQuiz(ctx context.Context, quizID string) ([]domain.SessionStat, error) {
	var rows []sessionStatModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session stats: %w", err)
	}
	out := make([]domain.SessionStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
