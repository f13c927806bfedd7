package local

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

const bachelorDegree = "b.tech"

var (
	jdSkills     = []string{"python", "java", "aws", "ml", "data science", "react", "node"}
	yearsPattern = regexp.MustCompile(`(\d+)\+?\s*years?`)
)

// ParseJobDescription extracts required skills, minimum education and minimum years of
// experience by keyword matching.
func (b *Backend) ParseJobDescription(_ context.Context, text string) (screening.JobDescription, error) {
	lower := strings.ToLower(text)

	skills := []string{}
	for _, skill := range jdSkills {
		if strings.Contains(lower, skill) {
			skills = append(skills, skill)
		}
	}

	var education any
	if strings.Contains(lower, bachelorDegree) || strings.Contains(lower, "bachelor") {
		education = bachelorDegree
	}

	years := 0
	if m := yearsPattern.FindStringSubmatch(lower); m != nil {
		years, _ = strconv.Atoi(m[1])
	}

	b.logger.Debug("job description parsed",
		zap.Strings("required_skills", skills),
		zap.Int("min_experience_years", years),
	)

	return screening.JobDescription{
		"required_skills":      skills,
		"min_education":        education,
		"min_experience_years": years,
	}, nil
}
