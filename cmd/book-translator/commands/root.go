package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spherical/book-translator/internal/config"
	"github.com/spherical/book-translator/internal/observability"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "book-translator",
	Short: "Resumable page-by-page book translation via an LLM backend",
	Long: `book-translator walks a book one page at a time, sends each page to an
LLM translation backend with the previous translations as style context,
and records every outcome in an append-only result log. Interrupted runs
resume exactly where they stopped without re-translating committed pages.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig builds the run configuration with the --verbose flag applied.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}
