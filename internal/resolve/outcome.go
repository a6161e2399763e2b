package resolve

import (
	"time"

	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// buildOutcome assembles the batch outcome from settled results. Written
// once, after every task has reached a terminal state.
func buildOutcome(unit string, results []model.MatchResult, elapsed time.Duration) *model.BatchOutcome {
	outcome := &model.BatchOutcome{
		Unit:    unit,
		Results: results,
		Elapsed: elapsed,
	}
	outcome.Stats = countByStatus(results)
	return outcome
}

func countByStatus(results []model.MatchResult) model.BatchStats {
	stats := model.BatchStats{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case model.StatusMatched:
			stats.Matched++
		case model.StatusUnmatched:
			stats.Unmatched++
		case model.StatusError:
			stats.Errored++
		}
	}
	return stats
}
