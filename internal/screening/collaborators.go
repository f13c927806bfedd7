package screening

import "context"

// JobDescriptionParser turns free-text job descriptions into the opaque parsed form.
type JobDescriptionParser interface {
	ParseJobDescription(ctx context.Context, text string) (JobDescription, error)
}

// Scorer computes one raw score per resume. Every result must carry the ID of the
// resume it belongs to.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) ([]RawScore, error)
}

// AnalyticsService aggregates a scored set against a cutoff.
type AnalyticsService interface {
	Analyze(ctx context.Context, scored []ScoredCandidate, cutoff float64) (AnalyticsSummary, error)
}

// Answerer answers a free-text question about a single resume. An empty answer means
// the service had nothing to say.
type Answerer interface {
	Answer(ctx context.Context, question string, resume Payload) (string, error)
}

// Mailer delivers one invitation.
type Mailer interface {
	Send(ctx context.Context, inv Invitation) error
}

// Deps aggregates the collaborators used by the engine.
type Deps struct {
	Parser    JobDescriptionParser
	Scorer    Scorer
	Analytics AnalyticsService
	Answerer  Answerer
	Mailer    Mailer
}
