package screening

import "fmt"

const (
	// WeightTotal is the sum a WeightSet must reach before scoring.
	WeightTotal = 100.0
)

// WeightSet holds the per-category weights passed to the scorer.
type WeightSet struct {
	Skills         float64 `json:"skills" mapstructure:"skills"`
	Education      float64 `json:"education" mapstructure:"education"`
	Experience     float64 `json:"experience" mapstructure:"experience"`
	Certifications float64 `json:"certifications" mapstructure:"certifications"`
}

// DefaultWeights returns the weights a new conversation starts with.
func DefaultWeights() WeightSet {
	return WeightSet{Skills: 50, Education: 20, Experience: 20, Certifications: 10}
}

// Sum returns the total of the four weights.
func (w WeightSet) Sum() float64 {
	return w.Skills + w.Education + w.Experience + w.Certifications
}

// Validate reports whether the weights may be used for a scoring round.
func (w WeightSet) Validate() error {
	sum := w.Sum()
	if sum != WeightTotal {
		return fmt.Errorf("%w: weights sum to %v, want %v", ErrInvalidArgument, sum, WeightTotal)
	}
	return nil
}

// WeightUpdate is a partial edit; nil fields are left untouched.
type WeightUpdate struct {
	Skills         *float64 `json:"skills,omitempty"`
	Education      *float64 `json:"education,omitempty"`
	Experience     *float64 `json:"experience,omitempty"`
	Certifications *float64 `json:"certifications,omitempty"`
}

// Apply returns a copy of w with the provided fields replaced.
func (u WeightUpdate) Apply(w WeightSet) WeightSet {
	if u.Skills != nil {
		w.Skills = *u.Skills
	}
	if u.Education != nil {
		w.Education = *u.Education
	}
	if u.Experience != nil {
		w.Experience = *u.Experience
	}
	if u.Certifications != nil {
		w.Certifications = *u.Certifications
	}
	return w
}
