package scoring

import (
	"sort"

	"geoquiz-service/internal/domain"
)

// Standings sums every participant's distances over the whole answer log and orders
// them ascending. Ties keep join order. Answers from unknown participants are ignored.
func Standings(participants []domain.Player, answers []domain.GivenAnswer) []domain.ResultEntry {
	totals := make(map[string]float64, len(participants))
	for _, a := range answers {
		totals[a.ParticipantID] += a.Distance
	}

	entries := make([]domain.ResultEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.ResultEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Distance:      totals[p.ID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Distance < entries[j].Distance
	})
	return entries
}
