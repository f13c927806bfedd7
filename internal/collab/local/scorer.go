package local

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

type requirements struct {
	Skills         []string `mapstructure:"required_skills"`
	Education      []string `mapstructure:"min_education"`
	Years          float64  `mapstructure:"min_experience_years"`
	Certifications []string `mapstructure:"required_certifications"`
}

type profile struct {
	Skills         []string `mapstructure:"skills"`
	Education      string   `mapstructure:"education"`
	Years          float64  `mapstructure:"experience_years"`
	Certifications []string `mapstructure:"certifications"`
}

// Score rates every resume against the job description on a 0..100 scale.
func (b *Backend) Score(_ context.Context, req screening.ScoreRequest) ([]screening.RawScore, error) {
	var jd requirements
	if err := decode(req.JobDescription, &jd); err != nil {
		return nil, fmt.Errorf("decode job description: %w", err)
	}

	w, err := normalize(req.Weights)
	if err != nil {
		return nil, err
	}

	out := make([]screening.RawScore, 0, len(req.Resumes))
	for _, r := range req.Resumes {
		var p profile
		if err := decode(r.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode resume %q: %w", r.ID, err)
		}

		score := scoreProfile(p, jd, w)
		b.logger.Debug("candidate scored", zap.String("candidate_id", r.ID), zap.Float64("score", score))
		out = append(out, screening.RawScore{CandidateID: r.ID, Score: score})
	}

	return out, nil
}

// normalize rescales weights that do not add up to the expected total.
func normalize(w screening.WeightSet) (screening.WeightSet, error) {
	sum := w.Sum()
	if math.IsNaN(sum) || math.IsInf(sum, 0) || sum <= 0 {
		return w, fmt.Errorf("%w: weights sum to %v", screening.ErrInvalidArgument, sum)
	}
	if sum == screening.WeightTotal {
		return w, nil
	}

	k := screening.WeightTotal / sum
	return screening.WeightSet{
		Skills:         w.Skills * k,
		Education:      w.Education * k,
		Experience:     w.Experience * k,
		Certifications: w.Certifications * k,
	}, nil
}

func scoreProfile(p profile, jd requirements, w screening.WeightSet) float64 {
	score := overlap(p.Skills, jd.Skills) * w.Skills

	education := strings.ToLower(p.Education)
	for _, required := range jd.Education {
		required = strings.ToLower(strings.TrimSpace(required))
		if required != "" && strings.Contains(education, required) {
			score += w.Education
			break
		}
	}

	if jd.Years > 0 {
		ratio := math.Min(p.Years/jd.Years, 1)
		score += math.Max(ratio, 0) * w.Experience
	}

	score += overlap(p.Certifications, jd.Certifications) * w.Certifications

	total := w.Sum()
	if total == 0 {
		return 0
	}
	return round2(score / total * 100)
}

// overlap returns the share of required items present in have, case-insensitively.
func overlap(have, required []string) float64 {
	want := lowerSet(required)
	if len(want) == 0 {
		return 0
	}
	got := lowerSet(have)

	matched := 0
	for item := range want {
		if _, ok := got[item]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = struct{}{}
	}
	return set
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
