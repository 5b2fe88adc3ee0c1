package core

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Predefined errors returned by handle operations.
var (
	// ErrNoStatement is returned by Exec and Fetch when nothing has been prepared or run.
	ErrNoStatement = errors.New("no statement to execute")
	// ErrNoTransaction is returned by Commit and Rollback at depth zero.
	ErrNoTransaction = errors.New("no transaction in progress")
	// ErrTxInProgress is returned when a connection is asked to begin a second transaction.
	ErrTxInProgress = errors.New("transaction already in progress")
	// ErrNoData is returned by Insert when called without rows.
	ErrNoData = errors.New("no values to write")
	// ErrUnsupportedDialect is returned when a driver has no registered dialect.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	// ErrInvalidFetchTarget is returned when class mode is given something other
	// than a pointer to a struct or to a slice of structs.
	ErrInvalidFetchTarget = errors.New("invalid fetch target")
)

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}

// QueryError is a statement the driver rejected.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

// Error renders the driver message followed by the statement in parentheses.
func (e *QueryError) Error() string {
	return e.Message + ". (" + e.Query + ")"
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ErrorSink decides what happens to a failed statement. The returned error
// is handed back to the caller.
type ErrorSink interface {
	Report(err *QueryError) error
}

// ReturnSink hands every failure back to the caller unchanged.
type ReturnSink struct{}

// Report implements ErrorSink.
func (ReturnSink) Report(err *QueryError) error { return err }

// Format selects how DebugSink renders a failure.
type Format int

const (
	// FormatText writes the statement and error on two lines.
	FormatText Format = iota
	// FormatHTML writes an HTML fragment for display in a page.
	FormatHTML
)

// DebugSink prints the failing statement and terminates the process.
type DebugSink struct {
	Out    io.Writer // defaults to os.Stderr
	Format Format
	Exit   func(code int) // defaults to os.Exit
}

// Report implements ErrorSink. It only returns when Exit does.
func (s DebugSink) Report(err *QueryError) error {
	out := s.Out
	if out == nil {
		out = os.Stderr
	}
	switch s.Format {
	case FormatHTML:
		fmt.Fprintf(out, `<h1>Database Error</h1><h4>Query: <em style="font-weight:normal">"%s"</em></h4><h4>Error: <em style="font-weight:normal">%s</em></h4>`,
			err.Query, err.Message)
	default:
		fmt.Fprintf(out, "Query: %s\nError: %s\n", err.Query, err.Message)
	}

	exit := s.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(1)
	return err
}
