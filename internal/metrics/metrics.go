package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives operational events from the Spotify integration and the HTTP layer.
type Recorder interface {
	RecordTokenExchange(success bool)
	RecordTokenRefresh(reason string, success bool)
	RecordUpstreamRequest(status int)
	RecordHTTPRequest(method string, status int)
}

var _ Recorder = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for the application.
type Metrics struct {
	TokenExchangesTotal   *prometheus.CounterVec
	TokenRefreshesTotal   *prometheus.CounterVec
	UpstreamRequestsTotal *prometheus.CounterVec
	HTTPRequestsTotal     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokenExchangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotify_token_exchanges_total",
				Help: "Total number of authorization code exchanges",
			},
			[]string{"result"}, // success, error
		),
		TokenRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotify_token_refreshes_total",
				Help: "Total number of refresh token grants",
			},
			[]string{"reason", "result"}, // expired|unauthorized, success|error
		),
		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotify_upstream_requests_total",
				Help: "Total number of Spotify Web API requests by response status",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "status"},
		),
	}
}

func (m *Metrics) RecordTokenExchange(success bool) {
	m.TokenExchangesTotal.WithLabelValues(result(success)).Inc()
}

func (m *Metrics) RecordTokenRefresh(reason string, success bool) {
	m.TokenRefreshesTotal.WithLabelValues(reason, result(success)).Inc()
}

func (m *Metrics) RecordUpstreamRequest(status int) {
	m.UpstreamRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) RecordHTTPRequest(method string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
