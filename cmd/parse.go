package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/resume"
)

var parseCmd = &cobra.Command{
	Use:   "parse [pdf files or directories]",
	Short: "Extract candidate data from PDF resumes into a candidates file",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		parse(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringP("output", "o", "candidates.yaml", "where to write the candidates file")
}

func parse(cmd *cobra.Command, args []string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	paths, err := resume.ExpandPaths(args)
	if err != nil {
		logger.Fatal("resolving resume paths", zap.Error(err))
	}
	if len(paths) == 0 {
		logger.Fatal("no pdf files found", zap.Strings("args", args))
	}

	resumes, err := resume.ParseFiles(context.Background(), paths, logger)
	if err != nil {
		logger.Warn("some resumes were skipped", zap.Error(err))
	}
	if len(resumes) == 0 {
		logger.Fatal("no resume could be parsed")
	}

	output, _ := cmd.Flags().GetString("output")
	if err := resume.Save(output, resumes); err != nil {
		logger.Fatal("writing candidates file", zap.Error(err))
	}

	logger.Info("candidates written",
		zap.String("file", output),
		zap.Int("parsed", len(resumes)),
		zap.Int("skipped", len(paths)-len(resumes)),
	)
}
