package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/metrics"
)

// AnalyticsRequester asks the analytics collaborator for a summary of a scored set.
type AnalyticsRequester struct {
	service AnalyticsService
	logger  *zap.Logger
}

// NewAnalyticsRequester wraps service.
func NewAnalyticsRequester(service AnalyticsService, logger *zap.Logger) *AnalyticsRequester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsRequester{service: service, logger: logger}
}

// Request returns the summary for the full scored set against cutoff.
func (r *AnalyticsRequester) Request(ctx context.Context, scored []ScoredCandidate, cutoff float64) (*AnalyticsSummary, error) {
	if r.service == nil {
		return nil, errors.New("analytics service is not configured")
	}

	started := time.Now()
	summary, err := r.service.Analyze(ctx, scored, cutoff)
	metrics.ObserveCollaborator("analytics", started, err)
	if err != nil {
		return nil, fmt.Errorf("request analytics: %w", err)
	}

	r.logger.Debug("analytics received",
		zap.Int("total_resumes", summary.TotalResumes),
		zap.Float64("avg_score", summary.AvgScore),
		zap.Float64("pass_percentage", summary.PassPercentage),
	)

	return &summary, nil
}
