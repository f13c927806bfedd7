package screening

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// readyToScore parses a JD and uploads two resumes scored 80 and 60.
func readyToScore(t *testing.T, f *fixture) {
	t.Helper()
	if err := f.engine.SetResumes(twoResumes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.scorer.scores = map[string]float64{"a.pdf": 80, "b.pdf": 60}
	f.engine.SubmitJobDescription(context.Background(), "Go developer, 3+ years")
}

func TestScoreRoundEmitsScoresAndAwaitsCutoff(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.engine.UpdateWeights(WeightUpdate{})

	reply := f.engine.SubmitTurn(context.Background(), "Score")

	want := []string{"Score", "A: 80", "B: 60", msgEnterCutoff}
	if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
	}
	if reply.Turns[0].Sender != SenderUser {
		t.Fatalf("expected first turn from user, got %s", reply.Turns[0].Sender)
	}
	if reply.Phase != PhaseAwaitingCutoff {
		t.Fatalf("expected awaiting cutoff, got %s", reply.Phase)
	}
	if f.scorer.calls != 1 {
		t.Fatalf("expected one scorer call, got %d", f.scorer.calls)
	}
	if f.scorer.lastReq.Weights != DefaultWeights() {
		t.Fatalf("unexpected weights sent: %+v", f.scorer.lastReq.Weights)
	}
	if len(f.scorer.lastReq.Resumes) != 2 || f.scorer.lastReq.JobDescription == nil {
		t.Fatalf("expected full candidate set and parsed jd, got %+v", f.scorer.lastReq)
	}
}

func TestScoreCorrelatesByCandidateID(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.scorer.reorder = true

	reply := f.engine.SubmitTurn(context.Background(), "score please")

	want := []string{"score please", "A: 80", "B: 60", msgEnterCutoff}
	if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
	}
}

func TestScorePreconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		warning string
	}{
		{
			name: "job description not parsed",
			setup: func(t *testing.T, f *fixture) {
				if err := f.engine.SetResumes(twoResumes()); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
			warning: msgJDRequired,
		},
		{
			name: "no resumes",
			setup: func(_ *testing.T, f *fixture) {
				f.engine.SubmitJobDescription(context.Background(), "Go developer")
			},
			warning: msgResumesRequired,
		},
		{
			name: "weights sum to 95",
			setup: func(t *testing.T, f *fixture) {
				readyToScore(t, f)
				skills := 45.0
				f.engine.UpdateWeights(WeightUpdate{Skills: &skills})
			},
			warning: msgWeightsInvalid,
		},
		{
			name: "weights sum to 105",
			setup: func(t *testing.T, f *fixture) {
				readyToScore(t, f)
				certs := 15.0
				f.engine.UpdateWeights(WeightUpdate{Certifications: &certs})
			},
			warning: msgWeightsInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			tt.setup(t, f)

			reply := f.engine.SubmitTurn(context.Background(), "score")

			want := []string{"score", tt.warning}
			if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
				t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
			}
			if reply.Phase != PhaseIdle {
				t.Fatalf("expected idle, got %s", reply.Phase)
			}
			if f.scorer.calls != 0 {
				t.Fatalf("expected no scorer call, got %d", f.scorer.calls)
			}
		})
	}
}

func TestScoreFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scorer Scorer
	}{
		{name: "collaborator error", scorer: &stubScorer{err: errors.New("connection refused")}},
		{name: "unknown candidate id", scorer: mismatchedScorer{}},
		{name: "short result", scorer: shortScorer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			readyToScore(t, f)
			f.engine.deps.Scorer = tt.scorer

			reply := f.engine.SubmitTurn(context.Background(), "score")

			want := []string{"score", msgScoringFailed}
			if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
				t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
			}
			if reply.Phase != PhaseIdle {
				t.Fatalf("expected idle, got %s", reply.Phase)
			}
			if len(f.engine.Scores()) != 0 {
				t.Fatalf("expected no scores to be kept")
			}
		})
	}
}

type mismatchedScorer struct{}

type shortScorer struct{}

func (shortScorer) Score(_ context.Context, req ScoreRequest) ([]RawScore, error) {
	return []RawScore{{CandidateID: req.Resumes[0].ID, Score: 10}}, nil
}

func (mismatchedScorer) Score(_ context.Context, req ScoreRequest) ([]RawScore, error) {
	out := make([]RawScore, len(req.Resumes))
	for i := range req.Resumes {
		out[i] = RawScore{CandidateID: "someone-else", Score: 1}
	}
	return out, nil
}

func TestCutoffRejectsNonNumericInput(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.engine.SubmitTurn(context.Background(), "score")

	for _, input := range []string{"abc", "NaN", "inf", "score", "%70"} {
		reply := f.engine.SubmitTurn(context.Background(), input)

		want := []string{input, msgInvalidCutoff}
		if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
			t.Fatalf("input %q: unexpected turns %q", input, got)
		}
		if reply.Phase != PhaseAwaitingCutoff {
			t.Fatalf("input %q: expected awaiting cutoff, got %s", input, reply.Phase)
		}
	}

	if f.analytics.calls != 0 {
		t.Fatalf("expected no analytics call, got %d", f.analytics.calls)
	}
	if len(f.engine.Passed()) != 0 {
		t.Fatalf("expected no passed set")
	}
	if f.scorer.calls != 1 {
		t.Fatalf("expected 'score' to be treated as a cutoff, scorer calls %d", f.scorer.calls)
	}
}

func TestCutoffPassesCandidatesAndOpensInvitations(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.engine.SubmitTurn(context.Background(), "score")

	reply := f.engine.SubmitTurn(context.Background(), " 70 ")

	want := []string{" 70 ", "✓ Passed: A (a@example.com)", msgSelectRecipients}
	if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
	}
	if reply.Phase != PhaseReviewingInvitations {
		t.Fatalf("expected reviewing invitations, got %s", reply.Phase)
	}

	passed := f.engine.Passed()
	if len(passed) != 1 || passed[0].Name != "A" || passed[0].Score != 80 {
		t.Fatalf("unexpected passed set: %+v", passed)
	}
	if !f.engine.Invitation().Visible {
		t.Fatalf("expected invitation form to be visible")
	}

	if f.analytics.calls != 1 || len(f.analytics.lastScored) != 2 || f.analytics.lastCutoff != 70 {
		t.Fatalf("expected analytics over the full scored set, got calls=%d scored=%d cutoff=%v",
			f.analytics.calls, len(f.analytics.lastScored), f.analytics.lastCutoff)
	}
	if got := f.engine.Analytics(); got == nil || got.TotalResumes != 2 {
		t.Fatalf("unexpected analytics: %+v", got)
	}
}

func TestCutoffWithoutPassingCandidates(t *testing.T) {
	f := newFixture()
	if err := f.engine.SetResumes(twoResumes()[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.scorer.scores = map[string]float64{"a.pdf": 50}
	f.engine.SubmitJobDescription(context.Background(), "jd")
	f.engine.SubmitTurn(context.Background(), "score")

	reply := f.engine.SubmitTurn(context.Background(), "90")

	want := []string{"90", "No candidate has a score ≥ 90."}
	if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
	}
	if reply.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %s", reply.Phase)
	}
	if f.analytics.calls != 0 {
		t.Fatalf("expected no analytics call")
	}
	if f.engine.Invitation().Visible {
		t.Fatalf("expected invitation form to stay hidden")
	}
}

func TestCutoffAnalyticsFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.analytics.err = errors.New("503 service unavailable")
	f.engine.SubmitTurn(context.Background(), "score")

	reply := f.engine.SubmitTurn(context.Background(), "60")

	want := []string{"60", msgAnalyticsFailed, "✓ Passed: A (a@example.com)", "✓ Passed: B (b@example.com)", msgSelectRecipients}
	if got := texts(reply.Turns); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected turns:\n got %q\nwant %q", got, want)
	}
	if reply.Phase != PhaseReviewingInvitations {
		t.Fatalf("expected reviewing invitations, got %s", reply.Phase)
	}
	if f.engine.Analytics() != nil {
		t.Fatalf("expected no analytics after failure")
	}
}

func TestQuestionFallback(t *testing.T) {
	t.Parallel()

	t.Run("no resumes", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.engine.SubmitJobDescription(context.Background(), "jd")

		reply := f.engine.SubmitTurn(context.Background(), "What is the email?")
		if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{"What is the email?", msgNoResumes}) {
			t.Fatalf("unexpected turns %q", got)
		}
		if f.answerer.calls != 0 {
			t.Fatalf("expected no answerer call")
		}
	})

	t.Run("job description not parsed", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		if err := f.engine.SetResumes(twoResumes()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		reply := f.engine.SubmitTurn(context.Background(), "What is the email?")
		if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{"What is the email?", msgParseJDFirst}) {
			t.Fatalf("unexpected turns %q", got)
		}
		if f.answerer.calls != 0 {
			t.Fatalf("expected no answerer call")
		}
	})

	t.Run("answers about the first candidate", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		readyToScore(t, f)

		reply := f.engine.SubmitTurn(context.Background(), "  What is the Email?")
		if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{"  What is the Email?", "Email: a@example.com"}) {
			t.Fatalf("unexpected turns %q", got)
		}
		if f.answerer.lastQuestion != "  What is the Email?" {
			t.Fatalf("expected raw question, got %q", f.answerer.lastQuestion)
		}
		if f.answerer.lastResume["name"] != "A" {
			t.Fatalf("expected first resume payload, got %v", f.answerer.lastResume)
		}
	})

	t.Run("empty answer", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		readyToScore(t, f)
		f.answerer.answer = "  "

		reply := f.engine.SubmitTurn(context.Background(), "hello")
		if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{"hello", msgNoAnswer}) {
			t.Fatalf("unexpected turns %q", got)
		}
	})

	t.Run("answerer failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		readyToScore(t, f)
		f.answerer.err = errors.New("timeout")

		reply := f.engine.SubmitTurn(context.Background(), "hello")
		if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{"hello", msgAnswerFailed}) {
			t.Fatalf("unexpected turns %q", got)
		}
		if reply.Phase != PhaseIdle {
			t.Fatalf("expected idle, got %s", reply.Phase)
		}
	})
}

func TestBlankTurnIsIgnored(t *testing.T) {
	f := newFixture()

	reply := f.engine.SubmitTurn(context.Background(), "   ")
	if len(reply.Turns) != 0 || len(f.engine.Transcript()) != 0 {
		t.Fatalf("expected blank input to be ignored")
	}
}

func TestSubmitJobDescription(t *testing.T) {
	f := newFixture()

	reply := f.engine.SubmitJobDescription(context.Background(), " ")
	if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{msgJDBlank}) {
		t.Fatalf("unexpected turns %q", got)
	}
	if f.parser.calls != 0 {
		t.Fatalf("expected no parser call for blank text")
	}

	f.parser.err = errors.New("bad gateway")
	reply = f.engine.SubmitJobDescription(context.Background(), "Go developer")
	if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{msgJDFailed}) {
		t.Fatalf("unexpected turns %q", got)
	}
	if f.engine.Snapshot().JobDescriptionParsed {
		t.Fatalf("expected jd to stay unparsed")
	}

	f.parser.err = nil
	reply = f.engine.SubmitJobDescription(context.Background(), "Go developer")
	if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{msgJDParsed}) {
		t.Fatalf("unexpected turns %q", got)
	}
	if reply.Turns[0].Sender != SenderBot {
		t.Fatalf("expected bot turn")
	}
}

func TestSetResumes(t *testing.T) {
	f := newFixture()

	err := f.engine.SetResumes([]Resume{{ID: "x.pdf"}, {ID: " x.pdf "}})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for duplicate ids, got %v", err)
	}
	if f.engine.Snapshot().Resumes != 0 {
		t.Fatalf("expected resumes to stay unchanged")
	}

	if err := f.engine.SetResumes([]Resume{{}, {}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.engine.Snapshot().Resumes != 2 {
		t.Fatalf("expected two resumes")
	}
}

func TestRescoringClosesInvitationReview(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.engine.SubmitTurn(context.Background(), "score")
	f.engine.SubmitTurn(context.Background(), "70")
	if err := f.engine.ToggleRecipient(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply := f.engine.SubmitTurn(context.Background(), "who has the best score?")

	if reply.Phase != PhaseAwaitingCutoff {
		t.Fatalf("expected awaiting cutoff, got %s", reply.Phase)
	}
	inv := f.engine.Invitation()
	if inv.Visible || len(inv.Recipients) != 0 {
		t.Fatalf("expected invitation review to be closed, got %+v", inv)
	}
	if len(f.engine.Passed()) != 0 {
		t.Fatalf("expected passed set to be discarded")
	}
}

func TestQuestionsKeepInvitationReviewOpen(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.engine.SubmitTurn(context.Background(), "score")
	f.engine.SubmitTurn(context.Background(), "70")

	reply := f.engine.SubmitTurn(context.Background(), "what is the email?")
	if reply.Phase != PhaseReviewingInvitations {
		t.Fatalf("expected reviewing invitations, got %s", reply.Phase)
	}
}

func TestTranscriptOnlyGrows(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)

	inputs := []string{"hello", "score", "abc", "70", "", "score", "100"}
	prev := f.engine.Transcript()
	for _, in := range inputs {
		f.engine.SubmitTurn(context.Background(), in)
		next := f.engine.Transcript()
		if len(next) < len(prev) {
			t.Fatalf("transcript shrank after %q", in)
		}
		if !reflect.DeepEqual(next[:len(prev)], prev) {
			t.Fatalf("prior entries changed after %q", in)
		}
		prev = next
	}
}

type recordingSink struct {
	seqs []int
	err  error
}

func (s *recordingSink) Record(_ context.Context, seq int, _ Turn) error {
	s.seqs = append(s.seqs, seq)
	return s.err
}

func TestSinkReceivesEveryTurn(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	e := NewEngine(Deps{}, Options{Sink: sink})

	e.SubmitTurn(context.Background(), "hello")
	e.SubmitTurn(context.Background(), "score")

	if !reflect.DeepEqual(sink.seqs, []int{0, 1, 2, 3}) {
		t.Fatalf("unexpected sequence numbers: %v", sink.seqs)
	}
	if len(e.Transcript()) != 4 {
		t.Fatalf("expected sink failures to be ignored")
	}
}

func TestEngineWithoutCollaborators(t *testing.T) {
	e := NewEngine(Deps{}, Options{})
	if err := e.SetResumes(twoResumes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply := e.SubmitJobDescription(context.Background(), "jd")
	if got := texts(reply.Turns); !reflect.DeepEqual(got, []string{msgJDFailed}) {
		t.Fatalf("unexpected turns %q", got)
	}
}

func TestParseCutoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "70", want: 70},
		{input: "  70.5 ", want: 70.5},
		{input: "70%", want: 70},
		{input: "70 points", want: 70},
		{input: "70abc", want: 70},
		{input: "-5", want: -5},
		{input: ".5", want: 0.5},
		{input: "1e2x", want: 100},
		{input: "7.", want: 7},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
		{input: "+", wantErr: true},
		{input: "NaN", wantErr: true},
		{input: "Infinity", wantErr: true},
		{input: "1e999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := parseCutoff(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("expected invalid argument, got %v (value %v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCutoffWithTrailingText(t *testing.T) {
	f := newFixture()
	readyToScore(t, f)
	f.engine.SubmitTurn(context.Background(), "score")

	reply := f.engine.SubmitTurn(context.Background(), "70%")

	if reply.Phase != PhaseReviewingInvitations {
		t.Fatalf("expected invitation review, got %s", reply.Phase)
	}
	if f.analytics.lastCutoff != 70 {
		t.Fatalf("expected cutoff 70, got %v", f.analytics.lastCutoff)
	}
	if passed := f.engine.Passed(); len(passed) != 1 || passed[0].Name != "A" {
		t.Fatalf("unexpected passed set %+v", passed)
	}
}
