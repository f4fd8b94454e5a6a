package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hagzilla/apiserver/config"
	"github.com/hagzilla/apiserver/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "apiserver",
	Short: "Quiz and expense tracker API",
	Long: `apiserver serves the quiz and expense tracker HTTP API and ships the
maintenance commands that go with it (migrations, question bank imports,
admin bootstrap, budget alert watching).`,
	SilenceUsage: true,
}

// Execute runs the root command with a context that is cancelled on
// SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the environment and initialises the logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, err
	}
	logger.Init(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return cfg, nil
}
