package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultRejected ResultLabel = "rejected" // caller error: bad slot, wrong kind, full container
	ResultFailed   ResultLabel = "failed"
)

// Recorder defines observability hooks for container operations and the
// location registry. All methods must be safe to call on NoopRecorder.
type Recorder interface {
	ObserveStageDuration(op, stage string, d time.Duration)
	ObserveOperationDuration(op string, d time.Duration)
	IncOperationResult(op string, result ResultLabel)
	IncRegistryFlush(result ResultLabel)
	SetRegistrySize(n int)
	IncEventRelayed(kind string, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration) {}
func (NoopRecorder) ObserveOperationDuration(string, time.Duration)     {}
func (NoopRecorder) IncOperationResult(string, ResultLabel)             {}
func (NoopRecorder) IncRegistryFlush(ResultLabel)                       {}
func (NoopRecorder) SetRegistrySize(int)                                {}
func (NoopRecorder) IncEventRelayed(string, bool)                       {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
