package memory

import (
	"context"
	"sync"

	"geoquiz-service/internal/domain"
)

// StatRepository keeps archived session stats in memory when no database is configured.
type StatRepository struct {
	mu    sync.Mutex
	stats []domain.SessionStat
}

func NewStatRepository() *StatRepository {
	return &StatRepository{}
}

func (r *StatRepository) RecordStat(_ context.Context, stat domain.SessionStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, stat)
	return nil
}

// Stats returns a copy of everything recorded so far.
func (r *StatRepository) Stats() []domain.SessionStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionStat(nil), r.stats...)
}
