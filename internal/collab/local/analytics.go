package local

import (
	"context"
	"fmt"

	"github.com/spigell/cv-screener/internal/screening"
)

// Analyze summarizes a scored set against cutoff.
func (b *Backend) Analyze(_ context.Context, scored []screening.ScoredCandidate, cutoff float64) (screening.AnalyticsSummary, error) {
	if len(scored) == 0 {
		return screening.AnalyticsSummary{}, fmt.Errorf("%w: no scored candidates", screening.ErrInvalidArgument)
	}

	var (
		sum    float64
		passed int
	)
	highest, lowest := scored[0].Score, scored[0].Score
	for _, s := range scored {
		sum += s.Score
		highest = max(highest, s.Score)
		lowest = min(lowest, s.Score)
		if s.Score >= cutoff {
			passed++
		}
	}

	total := len(scored)
	return screening.AnalyticsSummary{
		TotalResumes:   total,
		AvgScore:       round2(sum / float64(total)),
		HighestScore:   highest,
		LowestScore:    lowest,
		PassPercentage: round2(float64(passed) / float64(total) * 100),
	}, nil
}
