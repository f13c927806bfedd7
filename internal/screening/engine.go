// Package screening implements the conversation that drives candidate screening:
// scoring, cutoff filtering, analytics and the invitation sub-flow.
package screening

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	applog "github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/metrics"
)

// Phase is the externally visible state of a conversation.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingCutoff       Phase = "awaiting_cutoff"
	PhaseReviewingInvitations Phase = "reviewing_invitations"
)

// mode is the cutoff-waiting state. Invitation review is tracked by the batch and is
// orthogonal to it.
type mode int

const (
	modeIdle mode = iota
	modeAwaitingCutoff
)

const (
	kindCutoff   = "cutoff"
	kindScore    = "score"
	kindQuestion = "question"
)

// step is the result of one transition: the next mode and the bot turns to emit.
type step struct {
	next    mode
	replies []string
}

// Options configure a new Engine.
type Options struct {
	ID               string
	Weights          *WeightSet
	MaxParallelSends int
	Sink             TurnSink
	Logger           *zap.Logger
}

// Reply carries the turns recorded by one operation and the phase it left behind.
type Reply struct {
	Phase Phase  `json:"phase"`
	Turns []Turn `json:"turns"`
}

// Snapshot is a read-only view of a conversation.
type Snapshot struct {
	ID                   string            `json:"id"`
	Phase                Phase             `json:"phase"`
	Weights              WeightSet         `json:"weights"`
	Resumes              int               `json:"resumes"`
	JobDescriptionParsed bool              `json:"job_description_parsed"`
	Scores               []ScoredCandidate `json:"scores"`
	Passed               []ScoredCandidate `json:"passed"`
	Analytics            *AnalyticsSummary `json:"analytics,omitempty"`
	Invitation           InvitationState   `json:"invitation"`
	Transcript           []Turn            `json:"transcript"`
}

// Engine is the state machine of one conversation. All methods are serialized; a
// conversation handles one operation at a time.
type Engine struct {
	mu sync.Mutex

	id         string
	deps       Deps
	logger     *zap.Logger
	analytics  *AnalyticsRequester
	transcript *Transcript
	sink       TurnSink
	batch      *InvitationBatch

	mode     mode
	resumes  []Resume
	jd       JobDescription
	jdParsed bool
	weights  WeightSet
	board    ScoreBoard
	passed   []ScoredCandidate
	summary  *AnalyticsSummary
}

// NewEngine creates an idle conversation.
func NewEngine(deps Deps, opts Options) *Engine {
	logger := applog.ForConversation(opts.Logger, opts.ID)

	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	return &Engine{
		id:         opts.ID,
		deps:       deps,
		logger:     logger,
		analytics:  NewAnalyticsRequester(deps.Analytics, logger),
		transcript: NewTranscript(),
		sink:       opts.Sink,
		batch:      NewInvitationBatch(opts.MaxParallelSends, logger),
		weights:    weights,
	}
}

// ID returns the conversation id.
func (e *Engine) ID() string { return e.id }

// SetResumes replaces the uploaded resume set. Blank IDs are assigned from the
// position; IDs must be unique.
func (e *Engine) SetResumes(resumes []Resume) error {
	next := make([]Resume, len(resumes))
	seen := make(map[string]struct{}, len(resumes))
	for i, r := range resumes {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			r.ID = fmt.Sprintf("resume-%d", i+1)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: duplicate resume id %q", ErrInvalidArgument, r.ID)
		}
		seen[r.ID] = struct{}{}
		next[i] = r
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.resumes = next
	e.logger.Info("resumes replaced", zap.Int("count", len(next)))
	return nil
}

// SubmitJobDescription parses text and keeps the result for later scoring rounds.
func (e *Engine) SubmitJobDescription(ctx context.Context, text string) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.transcript.Len()
	if strings.TrimSpace(text) == "" {
		e.record(ctx, SenderBot, msgJDBlank)
		return e.reply(start)
	}

	jd, err := e.parseJobDescription(ctx, text)
	if err != nil {
		e.logger.Warn("job description parsing failed", zap.Error(err))
		e.record(ctx, SenderBot, msgJDFailed)
		return e.reply(start)
	}

	e.jd = jd
	e.jdParsed = true
	e.record(ctx, SenderBot, msgJDParsed)
	return e.reply(start)
}

// UpdateWeights merges the provided fields into the current weights.
func (e *Engine) UpdateWeights(u WeightUpdate) WeightSet {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.weights = u.Apply(e.weights)
	e.logger.Debug("weights updated", zap.Float64("sum", e.weights.Sum()))
	return e.weights
}

// SubmitTurn handles one line of user input.
func (e *Engine) SubmitTurn(ctx context.Context, raw string) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.transcript.Len()
	text := strings.TrimSpace(raw)
	if text == "" {
		return e.reply(start)
	}

	// The user turn is recorded before anything else can fail.
	e.record(ctx, SenderUser, raw)
	lower := strings.ToLower(text)

	var (
		s    step
		kind string
	)
	switch {
	case e.mode == modeAwaitingCutoff:
		kind = kindCutoff
		s = e.handleCutoff(ctx, text)
	case strings.Contains(lower, "score"):
		kind = kindScore
		s = e.handleScore(ctx)
	default:
		kind = kindQuestion
		s = e.handleQuestion(ctx, raw)
	}

	metrics.ObserveTurn(kind)
	e.logger.Debug("turn handled", zap.String("kind", kind), zap.Int("replies", len(s.replies)))

	e.mode = s.next
	for _, r := range s.replies {
		e.record(ctx, SenderBot, r)
	}

	return e.reply(start)
}

// ToggleRecipient flips selection of the passed candidate at index. The invitation
// form must be open.
func (e *Engine) ToggleRecipient(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.batch.Visible() {
		return errInvitationClosed
	}
	return e.batch.Toggle(index, len(e.passed))
}

// UpdateInviteMessage replaces the invitation message body. The invitation form must
// be open.
func (e *Engine) UpdateInviteMessage(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.batch.Visible() {
		return errInvitationClosed
	}
	e.batch.SetMessage(text)
	return nil
}

// SendInvitations dispatches the invitation to every selected recipient. With the form
// hidden it only records a warning.
func (e *Engine) SendInvitations(ctx context.Context) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.transcript.Len()
	if !e.batch.Visible() {
		e.logger.Debug("send rejected, invitation form is closed")
		e.record(ctx, SenderBot, msgInvitationClosed)
		return e.reply(start)
	}

	for _, r := range e.batch.Send(ctx, e.deps.Mailer, e.passed) {
		e.record(ctx, SenderBot, r)
	}
	return e.reply(start)
}

// Phase returns the current tagged state.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase()
}

// Transcript returns a copy of every recorded turn.
func (e *Engine) Transcript() []Turn {
	return e.transcript.Entries()
}

// Weights returns the current weights.
func (e *Engine) Weights() WeightSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weights
}

// Scores returns the latest scoring round.
func (e *Engine) Scores() []ScoredCandidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board.Scores()
}

// Passed returns the candidates that met the latest cutoff.
func (e *Engine) Passed() []ScoredCandidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ScoredCandidate(nil), e.passed...)
}

// Analytics returns the latest summary, nil when none is available.
func (e *Engine) Analytics() *AnalyticsSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summary == nil {
		return nil
	}
	s := *e.summary
	return &s
}

// Invitation returns the invitation form state.
func (e *Engine) Invitation() InvitationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batch.State()
}

// Snapshot returns a consistent view of the whole conversation.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var summary *AnalyticsSummary
	if e.summary != nil {
		s := *e.summary
		summary = &s
	}

	return Snapshot{
		ID:                   e.id,
		Phase:                e.phase(),
		Weights:              e.weights,
		Resumes:              len(e.resumes),
		JobDescriptionParsed: e.jdParsed,
		Scores:               e.board.Scores(),
		Passed:               append([]ScoredCandidate(nil), e.passed...),
		Analytics:            summary,
		Invitation:           e.batch.State(),
		Transcript:           e.transcript.Entries(),
	}
}

func (e *Engine) handleCutoff(ctx context.Context, text string) step {
	cutoff, err := parseCutoff(text)
	if err != nil {
		e.logger.Debug("rejected cutoff", zap.String("input", text), zap.Error(err))
		return step{next: modeAwaitingCutoff, replies: []string{msgInvalidCutoff}}
	}

	passed := e.board.Filter(cutoff)
	e.logger.Info("cutoff applied",
		zap.Float64("cutoff", cutoff),
		zap.Int("initial", e.board.Len()),
		zap.Int("dropped", e.board.Len()-len(passed)),
		zap.Int("left", len(passed)),
	)

	if len(passed) == 0 {
		e.passed = nil
		e.summary = nil
		e.batch.Close()
		return step{next: modeIdle, replies: []string{msgNoCandidate(cutoff)}}
	}

	var replies []string
	summary, err := e.analytics.Request(ctx, e.board.Scores(), cutoff)
	if err != nil {
		e.logger.Warn("analytics failed", zap.Error(err))
		replies = append(replies, msgAnalyticsFailed)
	}
	e.summary = summary

	for _, p := range passed {
		replies = append(replies, msgPassed(p))
	}

	e.passed = passed
	e.batch.Open()
	replies = append(replies, msgSelectRecipients)

	return step{next: modeIdle, replies: replies}
}

func (e *Engine) handleScore(ctx context.Context) step {
	stay := step{next: e.mode}

	if !e.jdParsed {
		stay.replies = []string{msgJDRequired}
		return stay
	}
	if len(e.resumes) == 0 {
		stay.replies = []string{msgResumesRequired}
		return stay
	}
	if err := e.weights.Validate(); err != nil {
		e.logger.Debug("scoring blocked", zap.Error(err))
		stay.replies = []string{msgWeightsInvalid}
		return stay
	}

	scores, err := e.score(ctx)
	if err != nil {
		e.logger.Warn("scoring failed", zap.Error(err))
		return step{next: modeIdle, replies: []string{msgScoringFailed}}
	}

	e.board = NewScoreBoard(scores)
	e.passed = nil
	e.summary = nil
	e.batch.Close()

	replies := make([]string, 0, len(scores)+1)
	for _, s := range scores {
		metrics.ObserveScore(s.Score)
		replies = append(replies, msgScore(s))
	}
	replies = append(replies, msgEnterCutoff)

	return step{next: modeAwaitingCutoff, replies: replies}
}

func (e *Engine) handleQuestion(ctx context.Context, question string) step {
	stay := step{next: e.mode}

	if len(e.resumes) == 0 {
		stay.replies = []string{msgNoResumes}
		return stay
	}
	if !e.jdParsed {
		stay.replies = []string{msgParseJDFirst}
		return stay
	}

	answer, err := e.answer(ctx, question, e.resumes[0].Payload)
	if err != nil {
		e.logger.Warn("question answering failed", zap.Error(err))
		stay.replies = []string{msgAnswerFailed}
		return stay
	}

	if strings.TrimSpace(answer) == "" {
		answer = msgNoAnswer
	}
	stay.replies = []string{answer}
	return stay
}

func (e *Engine) parseJobDescription(ctx context.Context, text string) (JobDescription, error) {
	if e.deps.Parser == nil {
		return nil, errors.New("job description parser is not configured")
	}

	started := time.Now()
	jd, err := e.deps.Parser.ParseJobDescription(ctx, text)
	metrics.ObserveCollaborator("parse_jd", started, err)
	if err != nil {
		return nil, err
	}
	if jd == nil {
		jd = JobDescription{}
	}
	return jd, nil
}

func (e *Engine) score(ctx context.Context) ([]ScoredCandidate, error) {
	if e.deps.Scorer == nil {
		return nil, errors.New("scorer is not configured")
	}

	req := ScoreRequest{
		Resumes:        append([]Resume(nil), e.resumes...),
		JobDescription: e.jd,
		Weights:        e.weights,
	}

	started := time.Now()
	raw, err := e.deps.Scorer.Score(ctx, req)
	metrics.ObserveCollaborator("score", started, err)
	if err != nil {
		return nil, err
	}

	return correlate(e.resumes, raw, e.logger)
}

func (e *Engine) answer(ctx context.Context, question string, payload Payload) (string, error) {
	if e.deps.Answerer == nil {
		return "", errors.New("answerer is not configured")
	}

	started := time.Now()
	answer, err := e.deps.Answerer.Answer(ctx, question, payload)
	metrics.ObserveCollaborator("chat", started, err)
	return answer, err
}

// correlate joins scorer results with resumes by candidate id, keeping resume order.
func correlate(resumes []Resume, raw []RawScore, logger *zap.Logger) ([]ScoredCandidate, error) {
	if len(raw) != len(resumes) {
		return nil, fmt.Errorf("%w: got %d scores for %d resumes", ErrUpstream, len(raw), len(resumes))
	}

	byID := make(map[string]float64, len(raw))
	for _, r := range raw {
		if _, dup := byID[r.CandidateID]; dup {
			return nil, fmt.Errorf("%w: duplicate score for candidate %q", ErrUpstream, r.CandidateID)
		}
		byID[r.CandidateID] = r.Score
	}

	scored := make([]ScoredCandidate, 0, len(resumes))
	for i, r := range resumes {
		score, ok := byID[r.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no score for candidate %q", ErrUpstream, r.ID)
		}
		c, err := CandidateAt(i, r)
		if err != nil {
			logger.Debug("contact fields fell back to defaults", zap.String("candidate_id", r.ID), zap.Error(err))
		}
		scored = append(scored, ScoredCandidate{ID: c.ID, Name: c.Name, Email: c.Email, Score: score})
	}

	return scored, nil
}

// leadingNumber matches the decimal literal a cutoff may start with.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// parseCutoff reads the number at the start of text, so "70%" and "70 points" mean 70.
// Text without a leading number, NaN and infinities are rejected.
func parseCutoff(text string) (float64, error) {
	literal := leadingNumber.FindString(strings.TrimSpace(text))
	if literal == "" {
		return 0, fmt.Errorf("%w: %q does not start with a number", ErrInvalidArgument, text)
	}
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: cutoff must be finite", ErrInvalidArgument)
	}
	return v, nil
}

func (e *Engine) phase() Phase {
	switch {
	case e.mode == modeAwaitingCutoff:
		return PhaseAwaitingCutoff
	case e.batch.Visible():
		return PhaseReviewingInvitations
	default:
		return PhaseIdle
	}
}

func (e *Engine) record(ctx context.Context, sender Sender, text string) {
	seq, turn := e.transcript.Append(sender, text)
	if e.sink == nil {
		return
	}
	if err := e.sink.Record(ctx, seq, turn); err != nil {
		e.logger.Warn("archiving turn failed", zap.Int("seq", seq), zap.Error(err))
	}
}

func (e *Engine) reply(start int) Reply {
	return Reply{Phase: e.phase(), Turns: e.transcript.Since(start)}
}
