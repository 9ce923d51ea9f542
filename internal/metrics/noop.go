package metrics

// NoopMetrics discards every event. Used when metrics are disabled and in tests.
type NoopMetrics struct{}

var _ Recorder = NoopMetrics{}

func (NoopMetrics) RecordTokenExchange(bool)        {}
func (NoopMetrics) RecordTokenRefresh(string, bool) {}
func (NoopMetrics) RecordUpstreamRequest(int)       {}
func (NoopMetrics) RecordHTTPRequest(string, int)   {}
