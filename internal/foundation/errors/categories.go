package errors

import "maps"

// ErrorCategory groups errors by the subsystem or kind of fault.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation" // rejected caller input
	CategoryConfig     ErrorCategory = "config"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryState      ErrorCategory = "state" // conflicts with current container contents
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryJournal    ErrorCategory = "journal"
	CategoryNetwork    ErrorCategory = "network"
	CategoryRuntime    ErrorCategory = "runtime" // host runtime and executors
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how far an error reaches.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy tells callers whether trying again can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// profile is what a category implies unless the builder overrides it.
type profile struct {
	severity ErrorSeverity
	retry    RetryStrategy
	exitCode int
}

var profiles = map[ErrorCategory]profile{
	CategoryValidation: {SeverityError, RetryUserAction, 2},
	CategoryNotFound:   {SeverityError, RetryUserAction, 3},
	CategoryState:      {SeverityError, RetryUserAction, 4},
	CategoryConfig:     {SeverityFatal, RetryNever, 7},
	CategoryNetwork:    {SeverityError, RetryBackoff, 8},
	CategoryInternal:   {SeverityFatal, RetryNever, 10},
	CategoryFileSystem: {SeverityError, RetryBackoff, 11},
	CategoryJournal:    {SeverityWarning, RetryNever, 11},
	CategoryRuntime:    {SeverityError, RetryNever, 12},
}

func profileOf(c ErrorCategory) profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profile{SeverityError, RetryNever, 1}
}

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// String returns the value at key when it is a string.
func (c ErrorContext) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

func (c ErrorContext) with(key string, value any) ErrorContext {
	out := make(ErrorContext, len(c)+1)
	maps.Copy(out, c)
	out[key] = value
	return out
}
