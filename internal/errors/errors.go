package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/brewlog/internal/keyring"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/phase"
	"github.com/julianstephens/brewlog/internal/queue"
	"github.com/julianstephens/brewlog/internal/session"
	"github.com/julianstephens/brewlog/internal/storage"
	"github.com/julianstephens/brewlog/internal/storage/postgres"
)

// Exit codes
const (
	ExitFailure    = 1
	ExitValidation = 2
)

// Format formats an error message with a consistent "Error: " prefix and,
// for known failures, a hint line.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v", err)
	if hint := Hint(err); hint != "" {
		msg += "\nHint: " + hint
	}
	return msg
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Hint suggests the next step for errors a user can act on
func Hint(err error) string {
	switch {
	case stderrors.Is(err, session.ErrOffline):
		return "changes stay queued on this device; run 'brewlog sync' once the remote is reachable"
	case stderrors.Is(err, queue.ErrBlocked):
		return "a queued change depends on a record that has not been confirmed yet; run 'brewlog sync' again"
	case stderrors.Is(err, storage.ErrNotFound):
		return "check the id with 'brewlog measure list' or 'brewlog event list'"
	case stderrors.Is(err, phase.ErrUnknownPhase):
		return "phases are planning, brewing, fermenting, conditioning, completed"
	case stderrors.Is(err, postgres.ErrEmbeddedCredentials):
		return "store passwords in ~/.pgpass or PGPASSWORD, or save the full string with 'brewlog keyring set'"
	case stderrors.Is(err, keyring.ErrKeyringUnavailable):
		return "pass the connection string with --remote or BREWLOG_REMOTE"
	}
	return ""
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	if stderrors.Is(err, models.ErrValidation) || stderrors.Is(err, phase.ErrUnknownPhase) {
		return ExitValidation
	}
	return ExitFailure
}

// Fatal logs an error and exits the program
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(ExitCode(err))
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(ExitFailure)
}
