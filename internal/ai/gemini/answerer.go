package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

const provider = "gemini"

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Answerer answers recruiter questions about a parsed resume with Gemini.
type Answerer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// emptyAnswers are model replies that mean the resume has no answer.
var emptyAnswers = map[string]struct{}{
	"":              {},
	"n/a":           {},
	"none":          {},
	"unknown":       {},
	"not available": {},
}

func NewAnswerer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Answerer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Answerer{
		generator: generator,
		logger:    logger.ForModel(log, provider, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Answer implements screening.Answerer. An empty string means the model found nothing.
func (a *Answerer) Answer(ctx context.Context, question string, resume screening.Payload) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", screening.ErrInvalidArgument)
	}
	if resume == nil {
		resume = screening.Payload{}
	}

	resumeJSON, err := json.MarshalIndent(resume, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal resume payload: %w", err)
	}

	prompt := buildPrompt(question, string(resumeJSON))

	a.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	a.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	return parseResponse(raw), nil
}

func buildPrompt(question, resumeJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME_JSON}}\n\nQuestion:\n{{QUESTION}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{RESUME_JSON}}", resumeJSON)
	prompt = strings.ReplaceAll(prompt, "{{QUESTION}}", question)
	return prompt
}

// parseResponse extracts the answer field. Replies that are not JSON are used as plain text.
func parseResponse(raw string) string {
	cleaned := extractJSON(raw)

	answer := cleaned
	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err == nil {
		answer = coerceString(data["answer"])
	}

	answer = strings.TrimSpace(answer)
	if _, ok := emptyAnswers[strings.ToLower(answer)]; ok {
		return ""
	}
	return answer
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
