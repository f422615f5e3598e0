// Package metrics holds the Prometheus collectors of the auth service. All
// recording methods are safe on a nil *Metrics so tests can omit them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ridebook_auth"

type Metrics struct {
	registry *prometheus.Registry

	otpSent          *prometheus.CounterVec
	otpVerifications *prometheus.CounterVec
	otpDelivery      *prometheus.HistogramVec
	tokensIssued     *prometheus.CounterVec
	tokenRejections  *prometheus.CounterVec
	housekeeping     *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		otpSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_sent_total",
			Help:      "OTP send and resend requests by outcome.",
		}, []string{"variant", "purpose", "outcome"}),
		otpVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by outcome.",
		}, []string{"variant", "outcome"}),
		otpDelivery: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "otp_delivery_seconds",
			Help:      "Time spent handing an OTP to the notifier.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		tokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token pairs issued, by grant.",
		}, []string{"variant", "grant"}),
		tokenRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rejections_total",
			Help:      "Refused access or refresh tokens, by reason.",
		}, []string{"reason"}),
		housekeeping: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_deleted_total",
			Help:      "Expired rows removed by housekeeping.",
		}, []string{"table"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

func (m *Metrics) OTPSent(variant, purpose, outcome string) {
	if m == nil {
		return
	}
	m.otpSent.WithLabelValues(variant, purpose, outcome).Inc()
}

func (m *Metrics) OTPVerification(variant, outcome string) {
	if m == nil {
		return
	}
	m.otpVerifications.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) OTPDelivery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.otpDelivery.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) TokensIssued(variant, grant string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(variant, grant).Inc()
}

func (m *Metrics) TokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) HousekeepingDeleted(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.housekeeping.WithLabelValues(table).Add(float64(n))
}
