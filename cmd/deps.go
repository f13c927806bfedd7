package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai/gemini"
	"github.com/spigell/cv-screener/internal/collab/local"
	"github.com/spigell/cv-screener/internal/collab/remote"
	"github.com/spigell/cv-screener/internal/mail"
	"github.com/spigell/cv-screener/internal/resume"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/secrets"
	"github.com/spigell/cv-screener/internal/store"
)

const (
	modeLocal       = "local"
	modeRemote      = "remote"
	providerKeyword = "keyword"
	providerGemini  = "gemini"
	providerLog     = "log"
	providerGmail   = "gmail"

	answerSystemInstruction = "You answer recruiter questions about a single candidate using only the resume data provided."
)

// screener holds everything a conversation needs that outlives it.
type screener struct {
	deps    screening.Deps
	archive *store.Archive
	resumes []screening.Resume
	config  *Config
	logger  *zap.Logger
}

func newScreener(ctx context.Context, config *Config, logger *zap.Logger) (*screener, error) {
	if err := config.Weights.Validate(); err != nil {
		logger.Warn("configured weights do not sum to 100, scoring stays blocked until they are fixed",
			zap.Float64("sum", config.Weights.Sum()),
		)
	}

	deps, err := newCollaborators(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	s := &screener{deps: deps, config: config, logger: logger}

	if config.Candidates != "" {
		resumes, err := resume.Load(config.Candidates)
		if err != nil {
			return nil, fmt.Errorf("loading candidates: %w", err)
		}
		s.resumes = resumes
		logger.Info("candidates loaded", zap.String("file", config.Candidates), zap.Int("count", len(resumes)))
	}

	if db := strings.TrimSpace(config.Transcript.Database); db != "" {
		archive, err := store.Open(db)
		if err != nil {
			return nil, fmt.Errorf("opening transcript archive: %w", err)
		}
		s.archive = archive
		logger.Info("transcript archiving enabled", zap.String("database", db))
	}

	return s, nil
}

// newEngine starts a conversation preloaded with the configured candidates.
func (s *screener) newEngine(id string) *screening.Engine {
	weights := s.config.Weights
	opts := screening.Options{
		ID:               id,
		Weights:          &weights,
		MaxParallelSends: s.config.Mail.MaxParallel,
		Logger:           s.logger,
	}
	if s.archive != nil {
		opts.Sink = s.archive.Sink(id)
	}

	e := screening.NewEngine(s.deps, opts)
	if len(s.resumes) > 0 {
		if err := e.SetResumes(s.resumes); err != nil {
			s.logger.Warn("configured candidates rejected", zap.Error(err))
		}
	}
	return e
}

func (s *screener) Close() error {
	if s.archive == nil {
		return nil
	}
	return s.archive.Close()
}

func newCollaborators(ctx context.Context, config *Config, logger *zap.Logger) (screening.Deps, error) {
	var deps screening.Deps

	switch mode := strings.ToLower(strings.TrimSpace(config.Collaborators.Mode)); mode {
	case "", modeLocal:
		backend := local.New(logger.Named("local"))
		deps.Parser, deps.Scorer, deps.Analytics, deps.Answerer = backend, backend, backend, backend
	case modeRemote:
		client, err := remote.New(config.Collaborators.Remote, logger.Named("remote"))
		if err != nil {
			return deps, fmt.Errorf("building remote collaborators: %w", err)
		}
		deps.Parser, deps.Scorer, deps.Analytics, deps.Answerer = client, client, client, client
	default:
		return deps, fmt.Errorf("unsupported collaborators mode: %s", config.Collaborators.Mode)
	}

	switch provider := strings.ToLower(strings.TrimSpace(config.QA.Provider)); provider {
	case "", providerKeyword:
	case providerGemini:
		answerer, err := newGeminiAnswerer(ctx, config.QA.Gemini, logger)
		if err != nil {
			return deps, fmt.Errorf("building gemini answerer: %w", err)
		}
		deps.Answerer = answerer
	default:
		return deps, fmt.Errorf("unsupported qa provider: %s", config.QA.Provider)
	}

	mailer, err := newMailer(ctx, config.Mail, logger)
	if err != nil {
		return deps, err
	}
	deps.Mailer = mailer

	return deps, nil
}

func newGeminiAnswerer(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (*gemini.Answerer, error) {
	if cfg == nil {
		return nil, errors.New("qa.gemini section is required when qa.provider is gemini")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set qa.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, answerSystemInstruction)
	if err != nil {
		return nil, err
	}

	return gemini.NewAnswerer(generator, cfg.MaxLogLength, logger), nil
}

func newMailer(ctx context.Context, cfg MailConfig, logger *zap.Logger) (screening.Mailer, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", providerLog:
		return mail.NewLog(cfg.From, cfg.Subject, logger.Named("mail")), nil
	case providerGmail:
		m, err := mail.NewGmail(ctx, cfg.Gmail, cfg.From, cfg.Subject, logger.Named("mail"))
		if err != nil {
			return nil, fmt.Errorf("building gmail mailer: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.Provider)
	}
}
