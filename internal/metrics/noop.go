package metrics

import "time"

// NoopMetrics discards everything; used when metrics are disabled.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthOutcome(kind string, duration time.Duration) {}
func (n *NoopMetrics) RecordTokenIssued(success bool)                        {}
