package main

import (
	"os"

	"github.com/joho/godotenv"

	"ace/internal/logging"
)

func main() {
	// Optional .env for local overrides; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.InfoLevel})
		logger.Error("command failed", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}
