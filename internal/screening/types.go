package screening

import (
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	defaultEmail = "no-email@example.com"
)

// Payload is the opaque parsed-resume document produced by the resume parser.
type Payload map[string]any

// JobDescription is the opaque parsed job description. The engine never looks inside,
// it only hands it back to the scorer.
type JobDescription map[string]any

// Resume is one uploaded resume. ID is the upload file name and is echoed back by the
// scorer as the correlation key.
type Resume struct {
	ID      string  `json:"id" yaml:"id"`
	Payload Payload `json:"parsed_data,omitempty" yaml:"parsed_data,omitempty"`
}

// Candidate is the display contact of a resume.
type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type contact struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// CandidateAt decodes the contact of the resume at position index, applying the
// positional defaults for missing fields. A payload whose contact fields cannot be
// decoded still yields a usable candidate, together with the decode error.
func CandidateAt(index int, r Resume) (Candidate, error) {
	var (
		c      contact
		decErr error
	)
	if r.Payload != nil {
		// Weakly typed input: parser payloads carry nil for absent fields.
		cfg := &mapstructure.DecoderConfig{Result: &c, WeaklyTypedInput: true}
		dec, err := mapstructure.NewDecoder(cfg)
		if err == nil {
			err = dec.Decode(map[string]any(r.Payload))
		}
		if err != nil {
			decErr = fmt.Errorf("decode contact of %q: %w", r.ID, err)
		}
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = fmt.Sprintf("Candidate %d", index+1)
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		email = defaultEmail
	}

	return Candidate{ID: r.ID, Name: name, Email: email}, decErr
}

// ScoredCandidate is a candidate with the score of the latest scoring round.
type ScoredCandidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Score float64 `json:"score"`
}

// RawScore is a single scorer result keyed by the candidate it belongs to.
type RawScore struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}

// ScoreRequest is everything the scorer needs for one round.
type ScoreRequest struct {
	Resumes        []Resume
	JobDescription JobDescription
	Weights        WeightSet
}

// AnalyticsSummary is the aggregate produced by the analytics collaborator.
type AnalyticsSummary struct {
	TotalResumes   int     `json:"total_resumes"`
	AvgScore       float64 `json:"avg_score"`
	HighestScore   float64 `json:"highest_score"`
	LowestScore    float64 `json:"lowest_score"`
	PassPercentage float64 `json:"pass_percentage"`
}

// PassFailCounts returns the rounded passed/failed candidate counts implied by the summary.
func (a AnalyticsSummary) PassFailCounts() (passed, failed int) {
	total := float64(a.TotalResumes)
	passed = int(math.Round(total * a.PassPercentage / 100))
	failed = int(math.Round(total * (1 - a.PassPercentage/100)))
	return passed, failed
}

// Invitation is a single outbound message request.
type Invitation struct {
	ToName  string
	ToEmail string
	Message string
}
