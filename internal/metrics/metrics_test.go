package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTokenExchange(true)
	m.RecordTokenExchange(false)
	m.RecordTokenRefresh("expired", true)
	m.RecordTokenRefresh("expired", true)
	m.RecordTokenRefresh("unauthorized", false)
	m.RecordUpstreamRequest(401)
	m.RecordHTTPRequest("GET", 200)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenExchangesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenExchangesTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenRefreshesTotal.WithLabelValues("expired", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshesTotal.WithLabelValues("unauthorized", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "200")))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestNoopMetrics(t *testing.T) {
	var r Recorder = NoopMetrics{}
	r.RecordTokenExchange(true)
	r.RecordTokenRefresh("expired", false)
	r.RecordUpstreamRequest(500)
	r.RecordHTTPRequest("POST", 204)
}
