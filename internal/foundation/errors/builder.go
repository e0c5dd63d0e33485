package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error in category with that category's default
// severity and retry strategy.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	p := profileOf(category)
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: p.severity,
		retry:    p.retry,
		message:  message,
	}}
}

// WrapError is NewError with an underlying cause.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.err.cause = cause
	return b
}

func (b *ErrorBuilder) WithSeverity(s ErrorSeverity) *ErrorBuilder { b.err.severity = s; return b }
func (b *ErrorBuilder) WithRetry(r RetryStrategy) *ErrorBuilder    { b.err.retry = r; return b }
func (b *ErrorBuilder) WithReason(r Reason) *ErrorBuilder          { b.err.reason = r; return b }

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.with(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder      { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder    { return b.WithSeverity(SeverityWarning) }
func (b *ErrorBuilder) Retryable() *ErrorBuilder  { return b.WithRetry(RetryBackoff) }
func (b *ErrorBuilder) UserAction() *ErrorBuilder { return b.WithRetry(RetryUserAction) }

// Build returns the error. The builder may be reused; later changes do not
// affect errors already built.
func (b *ErrorBuilder) Build() *ClassifiedError {
	e := b.err
	return &e
}

func ConfigError(message string) *ErrorBuilder     { return NewError(CategoryConfig, message) }
func ValidationError(message string) *ErrorBuilder { return NewError(CategoryValidation, message) }
func NotFoundError(message string) *ErrorBuilder   { return NewError(CategoryNotFound, message) }
func StateError(message string) *ErrorBuilder      { return NewError(CategoryState, message) }
func FileSystemError(message string) *ErrorBuilder { return NewError(CategoryFileSystem, message) }
func JournalError(message string) *ErrorBuilder    { return NewError(CategoryJournal, message) }
func NetworkError(message string) *ErrorBuilder    { return NewError(CategoryNetwork, message) }
func RuntimeError(message string) *ErrorBuilder    { return NewError(CategoryRuntime, message) }
func InternalError(message string) *ErrorBuilder   { return NewError(CategoryInternal, message) }
