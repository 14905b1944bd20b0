package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"news-reader/internal/config"
)

var (
	flagLogLevel string

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "news-reader").Logger()
)

var rootCmd = NewRootCmd()

// Execute runs the command line and reports a failure on stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "news-reader",
		Short:         "Read generated news articles with a synchronized audio edition",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := resolveLogLevel()
			if err != nil {
				return err
			}
			logger = logger.Level(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides NEWS_READER_LOG_LEVEL")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRenderCmd())

	return root
}

func resolveLogLevel() (zerolog.Level, error) {
	if flagLogLevel == "" {
		return config.LogLevel()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(flagLogLevel)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid --log-level: %w", err)
	}
	return level, nil
}
