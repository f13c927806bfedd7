package remote

import (
	"context"
	"fmt"

	"github.com/spigell/cv-screener/internal/screening"
)

type parseJDRequest struct {
	Text string `json:"jd_text"`
}

type parseJDResponse struct {
	ParsedJD screening.JobDescription `json:"parsed_jd"`
}

type candidate struct {
	Filename   string            `json:"filename"`
	ParsedData screening.Payload `json:"parsed_data"`
}

type scoreRequest struct {
	Candidates     []candidate              `json:"candidates"`
	JobDescription screening.JobDescription `json:"job_description"`
	Weights        screening.WeightSet      `json:"weights"`
}

type scoredCandidate struct {
	Filename string  `json:"filename"`
	Name     string  `json:"name,omitempty"`
	Email    string  `json:"email,omitempty"`
	Score    float64 `json:"score"`
}

type scoreResponse struct {
	ScoredCandidates []scoredCandidate `json:"scored_candidates"`
}

type analyticsRequest struct {
	ScoredCandidates []scoredCandidate `json:"scored_candidates"`
	Cutoff           float64           `json:"cutoff"`
}

type chatRequest struct {
	Question string            `json:"question"`
	Resume   screening.Payload `json:"resume"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// ParseJobDescription implements screening.JobDescriptionParser.
func (c *Client) ParseJobDescription(ctx context.Context, text string) (screening.JobDescription, error) {
	var resp parseJDResponse
	if err := c.postJSON(ctx, "/parse_jd", parseJDRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if resp.ParsedJD == nil {
		return nil, fmt.Errorf("%w: parse_jd reply has no parsed_jd", screening.ErrUpstream)
	}
	return resp.ParsedJD, nil
}

// Score implements screening.Scorer. The resume id travels as the file name.
func (c *Client) Score(ctx context.Context, req screening.ScoreRequest) ([]screening.RawScore, error) {
	body := scoreRequest{
		Candidates:     make([]candidate, 0, len(req.Resumes)),
		JobDescription: req.JobDescription,
		Weights:        req.Weights,
	}
	for _, r := range req.Resumes {
		body.Candidates = append(body.Candidates, candidate{Filename: r.ID, ParsedData: r.Payload})
	}
	if body.JobDescription == nil {
		body.JobDescription = screening.JobDescription{}
	}

	var resp scoreResponse
	if err := c.postJSON(ctx, "/score", body, &resp); err != nil {
		return nil, err
	}

	out := make([]screening.RawScore, 0, len(resp.ScoredCandidates))
	for _, s := range resp.ScoredCandidates {
		out = append(out, screening.RawScore{CandidateID: s.Filename, Score: s.Score})
	}
	return out, nil
}

// Analyze implements screening.AnalyticsService.
func (c *Client) Analyze(ctx context.Context, scored []screening.ScoredCandidate, cutoff float64) (screening.AnalyticsSummary, error) {
	body := analyticsRequest{
		ScoredCandidates: make([]scoredCandidate, 0, len(scored)),
		Cutoff:           cutoff,
	}
	for _, s := range scored {
		body.ScoredCandidates = append(body.ScoredCandidates, scoredCandidate{
			Filename: s.ID,
			Name:     s.Name,
			Email:    s.Email,
			Score:    s.Score,
		})
	}

	var summary screening.AnalyticsSummary
	if err := c.postJSON(ctx, "/analytics", body, &summary); err != nil {
		return screening.AnalyticsSummary{}, err
	}
	return summary, nil
}

// Answer implements screening.Answerer.
func (c *Client) Answer(ctx context.Context, question string, resume screening.Payload) (string, error) {
	if resume == nil {
		resume = screening.Payload{}
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "/chat", chatRequest{Question: question, Resume: resume}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}
