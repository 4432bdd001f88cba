// Command studyrank serves and computes study-destination rankings.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/studyrank/internal/config"
	"github.com/okian/studyrank/pkg/logger"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studyrank",
		Short:         "Rank countries and universities as study destinations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $STUDYRANK_CONFIG)")

	root.AddCommand(serveCmd())
	root.AddCommand(rankCmd())
	root.AddCommand(seedCmd())

	return root
}

// setup loads configuration (defaults -> optional file -> env) and
// initializes logging to logOut.
func setup(cmd *cobra.Command, logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), cfgFile)
	if err != nil {
		return nil, err
	}

	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithFormat(format), logger.WithOutput(logOut)); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
