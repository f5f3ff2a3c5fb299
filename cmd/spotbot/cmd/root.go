package cmd

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spotbot",
	Short: "An algorithmic spot-crypto trading engine",
	Long: `Spotbot trades spot crypto pairs with an RSI+MACD+volume strategy.

It provides:
  - A paper-trading loop against live exchange data
  - Live execution through Binance (or binance.us)
  - A deterministic multi-symbol backtester with JSON reports
  - Daily-drawdown risk governance with stop-loss/take-profit exits
  - A SQLite trade journal and Discord alerts`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Credentials can live in a local .env; a missing file is fine.
	_ = godotenv.Load()
}

// setupLogging installs a console logger at the configured level.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
