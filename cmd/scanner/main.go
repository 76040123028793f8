package main

import (
	"os"

	"options-scanner/internal/cli"
	"options-scanner/internal/logging"
)

func main() {
	logger := logging.NewLogger()
	if err := cli.Execute(logger); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
