package errors

import (
	"errors"
	"strings"
)

// ClassifiedError is an error with a category, severity, retry strategy and,
// for rejected operations, a Reason.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	reason   Reason
	message  string
	cause    error
	context  ErrorContext
}

// Error renders "category[/reason]: message[: cause]".
func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.category))
	if e.reason != ReasonNone {
		sb.WriteByte('/')
		sb.WriteString(string(e.reason))
	}
	sb.WriteString(": ")
	sb.WriteString(e.message)
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *ClassifiedError) Unwrap() error                { return e.cause }
func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Reason() Reason               { return e.reason }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// WithContext returns a copy of e with key set.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	clone := *e
	clone.context = e.context.with(key, value)
	return &clone
}

// Is matches another ClassifiedError of the same category and reason. Without
// a reason on target, the messages must also agree.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	if !ok || e.category != other.category {
		return false
	}
	if other.reason != ReasonNone {
		return e.reason == other.reason
	}
	return e.message == other.message
}

// CanRetry reports whether retrying without user action can succeed.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry == RetryImmediate || e.retry == RetryBackoff
}

// AsClassified returns the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

func HasCategory(err error, category ErrorCategory) bool {
	return IsClassified(err) && GetCategory(err) == category
}

// GetCategory returns err's category, or CategoryInternal for unclassified errors.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.category
	}
	return CategoryInternal
}

// GetSeverity returns err's severity, or SeverityError for unclassified errors.
func GetSeverity(err error) ErrorSeverity {
	if classified, ok := AsClassified(err); ok {
		return classified.severity
	}
	return SeverityError
}
