package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/rhythm/internal/logger"
)

var (
	// ErrPermissionDenied is returned when calendar access is refused. Callers
	// proceed with zero calendar blocks.
	ErrPermissionDenied = stderrors.New("calendar permission denied")
	// ErrSyncUnavailable is returned when remote persistence or the advisory
	// service cannot be reached. Local state stays authoritative.
	ErrSyncUnavailable = stderrors.New("sync unavailable")
	// ErrTerminalState is returned when a completed or skipped block is mutated.
	ErrTerminalState = stderrors.New("block is already in a terminal state")
	// ErrNotFound is returned when a block, day or plan does not exist.
	ErrNotFound = stderrors.New("not found")
	// ErrNotMovable is returned when rescheduling an anchor or moving a block
	// further than its flexibility allows.
	ErrNotMovable = stderrors.New("block cannot be moved")
	// ErrNotTrackable is returned when completing or skipping a block that
	// does not count toward the completion rate.
	ErrNotTrackable = stderrors.New("block cannot be completed or skipped")
	// ErrRegenerationInProgress is returned when a mutation races a full-week
	// regeneration.
	ErrRegenerationInProgress = stderrors.New("weekly plan regeneration in progress")
	// ErrRegenerationSuperseded is returned to a regeneration whose result was
	// discarded because a newer one started after it.
	ErrRegenerationSuperseded = stderrors.New("weekly plan regeneration superseded by a newer one")
)

// ConflictError reports that a placement or reschedule would overlap another
// block.
type ConflictError struct {
	BlockID        string
	CompetingID    string
	CompetingTitle string
	StartMin       int
	EndMin         int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("block %s at %02d:%02d-%02d:%02d conflicts with %q (%s)",
		e.BlockID, e.StartMin/60, e.StartMin%60, e.EndMin/60, e.EndMin%60, e.CompetingTitle, e.CompetingID)
}

// InvariantViolation reports malformed upstream data. It is fatal only for
// the day it was found in.
type InvariantViolation struct {
	Date   string
	Detail string
}

func (e *InvariantViolation) Error() string {
	if e.Date == "" {
		return fmt.Sprintf("invariant violation: %s", e.Detail)
	}
	return fmt.Sprintf("invariant violation on %s: %s", e.Date, e.Detail)
}

// Invariantf builds an InvariantViolation for date.
func Invariantf(date, format string, args ...interface{}) *InvariantViolation {
	return &InvariantViolation{Date: date, Detail: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return stderrors.As(err, &ce)
}

// IsInvariantViolation reports whether err is or wraps an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return stderrors.As(err, &iv)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
