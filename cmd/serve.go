package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/httpapi"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve screening sessions over HTTP",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	serveCmd.Flags().StringP("candidates", "c", "", "candidates file preloaded into every session")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	if f := cmd.Flags().Lookup("candidates"); f != nil && f.Changed {
		viper.Set("candidates", f.Value.String())
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	api := httpapi.NewServer(httpapi.NewSessions(s.newEngine), reg, logger.Named("http"))
	if s.archive != nil {
		api.WithArchive(s.archive)
	}
	srv := &http.Server{
		Addr:              config.Server.Listen,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting the server", zap.String("version", version), zap.String("listen", config.Server.Listen))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serving http", zap.Error(err))
	}

	logger.Info("server stopped")
}
