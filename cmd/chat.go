package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/export"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
)

const (
	PromptDone = "done"

	chatHelp = `Commands:
  /jd <text>|@file      submit a job description
  /weights k=v ...      update weights (skills, education, experience, certifications)
  /invite               pick recipients among passed candidates
  /message <text>       set the invitation message
  /send                 send the invitations
  /status               show weights, scores and analytics
  /export [file]        write an xlsx report
  /quit                 leave
Anything else is sent as a chat turn: type 'score' to score, then a cutoff,
or ask about the candidates.`
)

var errQuit = errors.New("quit requested")

var (
	userColor    = color.New(color.FgHiBlue, color.Bold)
	botColor     = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Screen candidates in an interactive session",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("candidates", "c", "", "candidates file produced by the parse command")
	chatCmd.Flags().String("jd-file", "", "job description to submit on start")

	viper.BindPFlag("candidates", chatCmd.Flags().Lookup("candidates"))
}

func chat(cmd *cobra.Command) {
	ctx := context.Background()

	// Logs go to stderr so they do not interleave with the transcript on stdout.
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	s, err := newScreener(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing collaborators", zap.Error(err))
	}
	defer s.Close()

	engine := s.newEngine(uuid.NewString())
	logger.Info("starting the chat", zap.String("version", version), zap.String("conversation_id", engine.ID()))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, chatHelp)

	if len(s.resumes) == 0 {
		warnColor.Fprintln(out, "No candidates loaded. Use --candidates with a file produced by the parse command.")
	}

	if jdFile, _ := cmd.Flags().GetString("jd-file"); jdFile != "" {
		if err := submitJD(ctx, out, engine, "@"+jdFile); err != nil {
			logger.Fatal("submitting the job description", zap.Error(err))
		}
	}

	for {
		line, err := (&promptui.Prompt{Label: promptLabel(engine.Phase())}).Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
				return
			}
			logger.Fatal("reading input", zap.Error(err))
		}

		if err := handleLine(ctx, out, engine, line); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			failColor.Fprintln(out, err)
		}
	}
}

func promptLabel(p screening.Phase) string {
	switch p {
	case screening.PhaseAwaitingCutoff:
		return "cutoff"
	case screening.PhaseReviewingInvitations:
		return "you (/invite, /message, /send)"
	default:
		return "you"
	}
}

func handleLine(ctx context.Context, out io.Writer, engine *screening.Engine, line string) error {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		printReply(out, engine.SubmitTurn(ctx, line))
		return nil
	}

	command, args, _ := strings.Cut(trimmed, " ")
	args = strings.TrimSpace(args)

	switch command {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/jd":
		return submitJD(ctx, out, engine, args)
	case "/weights":
		update, err := parseWeights(args)
		if err != nil {
			return err
		}
		w := engine.UpdateWeights(update)
		printWeights(out, w)
	case "/invite":
		return pickRecipients(engine)
	case "/message":
		return engine.UpdateInviteMessage(args)
	case "/send":
		printReply(out, engine.SendInvitations(ctx))
	case "/status":
		printStatus(out, engine.Snapshot())
	case "/export":
		if args == "" {
			args = "screening-" + engine.ID()
		}
		path, err := export.SaveReport(args, engine.Snapshot())
		if err != nil {
			return err
		}
		successColor.Fprintf(out, "report written to %s\n", path)
	default:
		return fmt.Errorf("unknown command %s, type /help", command)
	}
	return nil
}

func submitJD(ctx context.Context, out io.Writer, engine *screening.Engine, arg string) error {
	text := arg
	if file, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading job description: %w", err)
		}
		text = string(data)
	}
	printReply(out, engine.SubmitJobDescription(ctx, text))
	return nil
}

// parseWeights reads "skills=60 education=10" style arguments.
func parseWeights(args string) (screening.WeightUpdate, error) {
	var u screening.WeightUpdate
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return u, errors.New("usage: /weights skills=50 education=20 experience=20 certifications=10")
	}

	for _, f := range fields {
		key, raw, ok := strings.Cut(f, "=")
		if !ok {
			return u, fmt.Errorf("expected key=value, got %q", f)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return u, fmt.Errorf("weight %s: %w", key, err)
		}

		switch strings.ToLower(key) {
		case "skills":
			u.Skills = &v
		case "education":
			u.Education = &v
		case "experience":
			u.Experience = &v
		case "certifications", "certs":
			u.Certifications = &v
		default:
			return u, fmt.Errorf("unknown weight %q", key)
		}
	}
	return u, nil
}

func pickRecipients(engine *screening.Engine) error {
	for {
		passed := engine.Passed()
		state := engine.Invitation()
		if !state.Visible || len(passed) == 0 {
			return errors.New("no invitation form is open, score and apply a cutoff first")
		}

		selected := make(map[int]bool, len(state.Recipients))
		for _, i := range state.Recipients {
			selected[i] = true
		}

		items := make([]string, 0, len(passed)+1)
		for i, p := range passed {
			mark := "[ ]"
			if selected[i] {
				mark = "[x]"
			}
			items = append(items, fmt.Sprintf("%s %s <%s> %.2f", mark, p.Name, p.Email, p.Score))
		}
		items = append(items, PromptDone)

		prompt := promptui.Select{
			Label: "Toggle recipients and choose done",
			Items: items,
			Size:  10,
		}
		idx, choice, err := prompt.Run()
		if err != nil {
			return err
		}
		if choice == PromptDone {
			return nil
		}
		if err := engine.ToggleRecipient(idx); err != nil {
			return err
		}
	}
}

func printReply(out io.Writer, reply screening.Reply) {
	for _, t := range reply.Turns {
		if t.Sender == screening.SenderUser {
			continue
		}
		turnColor(t.Text).Fprintln(out, "bot: "+t.Text)
	}
}

func turnColor(text string) *color.Color {
	switch {
	case strings.HasPrefix(text, "⚠️"):
		return warnColor
	case strings.HasPrefix(text, "❌"):
		return failColor
	case strings.HasPrefix(text, "✅"), strings.HasPrefix(text, "✓"):
		return successColor
	default:
		return botColor
	}
}

func printWeights(out io.Writer, w screening.WeightSet) {
	c := successColor
	if w.Validate() != nil {
		c = warnColor
	}
	c.Fprintf(out, "weights: skills=%g education=%g experience=%g certifications=%g (sum %g)\n",
		w.Skills, w.Education, w.Experience, w.Certifications, w.Sum())
}

func printStatus(out io.Writer, snap screening.Snapshot) {
	userColor.Fprintf(out, "conversation %s, phase %s, %d resumes\n", snap.ID, snap.Phase, snap.Resumes)
	printWeights(out, snap.Weights)

	for _, s := range snap.Scores {
		fmt.Fprintf(out, "  %-30s %6.2f\n", s.Name, s.Score)
	}

	if a := snap.Analytics; a != nil {
		passed, failed := a.PassFailCounts()
		fmt.Fprintf(out, "analytics: total=%d avg=%.2f max=%.2f min=%.2f passed=%d failed=%d (%.2f%%)\n",
			a.TotalResumes, a.AvgScore, a.HighestScore, a.LowestScore, passed, failed, a.PassPercentage)
	}
}
