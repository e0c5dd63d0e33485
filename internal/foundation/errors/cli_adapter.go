package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter turns command errors into a message and a process exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor maps err to an exit code: 0 for nil, 1 for unclassified errors,
// otherwise a code per category.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	classified, ok := AsClassified(err)
	if !ok {
		return 1
	}
	return profileOf(classified.category).exitCode
}

// FormatError renders err for the terminal. Rejections, validation and
// configuration problems print their message; other classified errors only
// print details in verbose mode.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	switch {
	case !ok:
		return "Error: " + err.Error()
	case a.verbose:
		return classified.Error()
	case classified.reason != ReasonNone,
		classified.category == CategoryValidation,
		classified.category == CategoryConfig:
		return "Error: " + classified.message
	default:
		return "Internal error occurred (use -v for details)"
	}
}

// Report logs err when appropriate, writes the message to w and returns the
// exit code.
func (a *CLIErrorAdapter) Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	a.log(err)
	_, _ = fmt.Fprintln(w, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError reports err on stderr and exits. It returns for a nil error.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Report(os.Stderr, err))
}

func (a *CLIErrorAdapter) log(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", slog.String("error", err.Error()))
		return
	}
	if !a.verbose && classified.severity != SeverityFatal {
		return
	}

	attrs := []slog.Attr{slog.String("category", string(classified.category))}
	if classified.reason != ReasonNone {
		attrs = append(attrs, slog.String("reason", string(classified.reason)))
	}
	if classified.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	if classified.cause != nil {
		attrs = append(attrs, slog.String("cause", classified.cause.Error()))
	}
	a.logger.LogAttrs(context.Background(), severityLevel(classified.severity), classified.message, attrs...)
}

func severityLevel(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
