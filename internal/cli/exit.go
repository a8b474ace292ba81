package cli

import (
	"errors"

	histerrors "histport.dev/histport/internal/errors"
)

// Exit codes
const (
	ExitFailure  = 1
	ExitMismatch = 2
	ExitAborted  = 130
)

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, histerrors.ErrAborted):
		return ExitAborted
	case errors.Is(err, histerrors.ErrVerifyMismatch):
		return ExitMismatch
	default:
		return ExitFailure
	}
}
