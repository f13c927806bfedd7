package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "List archived conversations or print one transcript",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		history(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("database", "", "transcript database (default is transcript.database from the config)")

	viper.BindPFlag("transcript.database", historyCmd.Flags().Lookup("database"))
}

type transcriptReader interface {
	Conversations(ctx context.Context) ([]string, error)
	Turns(ctx context.Context, conversationID string) ([]screening.Turn, error)
}

func history(cmd *cobra.Command, args []string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	db := strings.TrimSpace(config.Transcript.Database)
	if db == "" {
		logger.Fatal("transcript archive is not configured",
			zap.String("hint", "set transcript.database in the config or pass --database"),
		)
	}

	archive, err := store.Open(db)
	if err != nil {
		logger.Fatal("opening transcript archive", zap.Error(err))
	}
	defer archive.Close()

	id := ""
	if len(args) == 1 {
		id = args[0]
	}

	if err := printHistory(context.Background(), cmd.OutOrStdout(), archive, id); err != nil {
		logger.Error("reading transcript archive", zap.Error(err))
	}
}

var errNoTranscript = errors.New("no archived turns")

// printHistory lists conversation ids, or prints the transcript of id when set.
func printHistory(ctx context.Context, out io.Writer, archive transcriptReader, id string) error {
	if id == "" {
		ids, err := archive.Conversations(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			warnColor.Fprintln(out, "the archive is empty")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	turns, err := archive.Turns(ctx, id)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("%w for %s", errNoTranscript, id)
	}

	for _, t := range turns {
		stamp := t.At.Local().Format("2006-01-02 15:04:05")
		if t.Sender == screening.SenderUser {
			userColor.Fprintf(out, "%s you: %s\n", stamp, t.Text)
			continue
		}
		turnColor(t.Text).Fprintf(out, "%s bot: %s\n", stamp, t.Text)
	}
	return nil
}
