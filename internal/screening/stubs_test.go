package screening

import (
	"context"
	"errors"
	"sync"
)

type stubParser struct {
	jd    JobDescription
	err   error
	calls int
}

func (s *stubParser) ParseJobDescription(_ context.Context, _ string) (JobDescription, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.jd, nil
}

type stubScorer struct {
	scores  map[string]float64
	reorder bool
	err     error
	calls   int
	lastReq ScoreRequest
}

func (s *stubScorer) Score(_ context.Context, req ScoreRequest) ([]RawScore, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	out := make([]RawScore, 0, len(req.Resumes))
	for _, r := range req.Resumes {
		out = append(out, RawScore{CandidateID: r.ID, Score: s.scores[r.ID]})
	}
	if s.reorder {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

type stubAnalytics struct {
	summary    AnalyticsSummary
	err        error
	calls      int
	lastScored []ScoredCandidate
	lastCutoff float64
}

func (s *stubAnalytics) Analyze(_ context.Context, scored []ScoredCandidate, cutoff float64) (AnalyticsSummary, error) {
	s.calls++
	s.lastScored = scored
	s.lastCutoff = cutoff
	if s.err != nil {
		return AnalyticsSummary{}, s.err
	}
	return s.summary, nil
}

type stubAnswerer struct {
	answer       string
	err          error
	calls        int
	lastQuestion string
	lastResume   Payload
}

func (s *stubAnswerer) Answer(_ context.Context, question string, resume Payload) (string, error) {
	s.calls++
	s.lastQuestion = question
	s.lastResume = resume
	return s.answer, s.err
}

type stubMailer struct {
	mu     sync.Mutex
	failOn map[string]bool
	sent   []Invitation
}

func (s *stubMailer) Send(_ context.Context, inv Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, inv)
	if s.failOn[inv.ToEmail] {
		return errors.New("smtp: mailbox unavailable")
	}
	return nil
}

func (s *stubMailer) attempts() []Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Invitation(nil), s.sent...)
}

type fixture struct {
	parser    *stubParser
	scorer    *stubScorer
	analytics *stubAnalytics
	answerer  *stubAnswerer
	mailer    *stubMailer
	engine    *Engine
}

func newFixture() *fixture {
	f := &fixture{
		parser:    &stubParser{jd: JobDescription{"required_skills": []string{"go"}}},
		scorer:    &stubScorer{scores: map[string]float64{}},
		analytics: &stubAnalytics{summary: AnalyticsSummary{TotalResumes: 2, AvgScore: 70, HighestScore: 80, LowestScore: 60, PassPercentage: 50}},
		answerer:  &stubAnswerer{answer: "Email: a@example.com"},
		mailer:    &stubMailer{failOn: map[string]bool{}},
	}
	f.engine = NewEngine(Deps{
		Parser:    f.parser,
		Scorer:    f.scorer,
		Analytics: f.analytics,
		Answerer:  f.answerer,
		Mailer:    f.mailer,
	}, Options{ID: "test"})
	return f
}

func twoResumes() []Resume {
	return []Resume{
		{ID: "a.pdf", Payload: Payload{"name": "A", "email": "a@example.com"}},
		{ID: "b.pdf", Payload: Payload{"name": "B", "email": "b@example.com"}},
	}
}

func texts(turns []Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Text)
	}
	return out
}
