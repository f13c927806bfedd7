package resume

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/spigell/cv-screener/internal/screening"
)

const previewLength = 300

var (
	emailPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,4}[ -]?)?(\(?\d{3}\)?[ -]?)?\d[\d -]{6,14}\d`)
	yearsPattern = regexp.MustCompile(`(?i)(\d+)\+?\s*years?`)

	skillKeywords      = []string{"python", "java", "c++", "javascript", "react", "node", "sql", "excel", "machine learning"}
	educationKeywords  = []string{"bachelor", "master", "b.sc", "m.sc", "phd", "university", "college", "high school"}
	experienceKeywords = []string{"experience", "worked", "internship", "employed", "project"}
)

// Parse extracts the screening fields from resume text. Missing scalar fields are nil.
func Parse(text string) screening.Payload {
	experience := matchingLines(text, experienceKeywords)

	return screening.Payload{
		"name":             nullable(extractName(text)),
		"email":            nullable(emailPattern.FindString(text)),
		"phone":            nullable(strings.TrimSpace(phonePattern.FindString(text))),
		"skills":           extractSkills(text),
		"education":        nullable(strings.Join(matchingLines(text, educationKeywords), " | ")),
		"experience":       nullable(strings.Join(experience, " | ")),
		"experience_years": experienceYears(experience),
		"raw_text":         preview(text),
	}
}

func extractSkills(text string) []string {
	lower := strings.ToLower(text)
	skills := []string{}
	for _, s := range skillKeywords {
		if strings.Contains(lower, s) {
			skills = append(skills, s)
		}
	}
	return skills
}

func matchingLines(text string, keywords []string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, strings.TrimSpace(line))
				break
			}
		}
	}
	return out
}

// extractName takes the first short line made of letters only, which is where resumes
// usually put the name.
func extractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if strings.IndexFunc(line, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '-' && r != '\'' && r != '.'
		}) >= 0 {
			continue
		}
		return line
	}
	return ""
}

// experienceYears returns the largest "N years" figure found in the experience lines.
func experienceYears(lines []string) int {
	best := 0
	for _, line := range lines {
		for _, m := range yearsPattern.FindAllStringSubmatch(line, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > best {
				best = n
			}
		}
	}
	return best
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + "..."
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
