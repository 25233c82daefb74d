package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/microsoft/tolstack/internal/models"
)

// Exit codes for different failure modes
const (
	ExitSuccess        = 0 // Command completed
	ExitError          = 1 // Runtime error (I/O, cancellation)
	ExitConfigError    = 2 // Invalid request or configuration
	ExitInvariantError = 3 // Internal or solver failure
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode classifies err by the first typed error in its chain.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cfgErr *models.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	var invErr *models.InvariantError
	if errors.As(err, &invErr) {
		return ExitInvariantError
	}
	return ExitError
}
