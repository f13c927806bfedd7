package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/cv-screener/internal/screening"
)

const (
	notFound     = "Sorry, I couldn't find the information you requested."
	notAvailable = "Not available."
)

type contact struct {
	Name       string   `mapstructure:"name"`
	Email      string   `mapstructure:"email"`
	Phone      string   `mapstructure:"phone"`
	Skills     []string `mapstructure:"skills"`
	Education  string   `mapstructure:"education"`
	Experience string   `mapstructure:"experience"`
}

// Answer replies to a question about resume by matching the first known topic keyword.
func (b *Backend) Answer(_ context.Context, question string, resume screening.Payload) (string, error) {
	var c contact
	if err := decode(resume, &c); err != nil {
		return "", fmt.Errorf("decode resume: %w", err)
	}

	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "skill"):
		if len(c.Skills) == 0 {
			return "No specific skills found in the resume.", nil
		}
		return "The candidate has skills in " + strings.Join(c.Skills, ", ") + ".", nil
	case strings.Contains(q, "email"):
		return "Email: " + orNotAvailable(c.Email), nil
	case strings.Contains(q, "phone"):
		return "Phone: " + orNotAvailable(c.Phone), nil
	case strings.Contains(q, "name"):
		return "Name: " + orNotAvailable(c.Name), nil
	case strings.Contains(q, "education"):
		if strings.TrimSpace(c.Education) == "" {
			return "No education details found.", nil
		}
		return "Education details: " + c.Education, nil
	case strings.Contains(q, "experience"):
		if strings.TrimSpace(c.Experience) == "" {
			return "No experience details found.", nil
		}
		return "Experience details: " + c.Experience, nil
	case strings.Contains(q, "javascript"):
		for _, s := range c.Skills {
			if strings.Contains(strings.ToLower(s), "javascript") {
				return "Yes, the candidate knows JavaScript.", nil
			}
		}
		return "No, JavaScript was not found among the candidate's skills.", nil
	default:
		return notFound, nil
	}
}

func orNotAvailable(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return notAvailable
	}
	return v
}
