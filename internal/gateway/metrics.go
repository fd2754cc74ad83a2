package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/rpc"
)

// Write operation label for approvals file writes.
const OpApprovals = "approvals"

// Write result labels.
const (
	ResultOK        = "ok"
	ResultStale     = "stale"
	ResultInvalid   = "invalid"
	ResultTransport = "transport"
	ResultError     = "error"
)

// Metrics holds the console's prometheus collectors on a custom registry.
type Metrics struct {
	Registry *prometheus.Registry

	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec
	Writes      *prometheus.CounterVec
	Dirty       prometheus.Gauge
}

var _ rpc.Observer = (*Metrics)(nil)

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sclaw_console",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Gateway RPC calls by method and outcome.",
		}, []string{"method", "status"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sclaw_console",
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "Gateway RPC call duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sclaw_console",
			Name:      "writes_total",
			Help:      "Configuration writes by operation and result.",
		}, []string{"op", "result"}),
		Dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sclaw_console",
			Name:      "dirty_domains",
			Help:      "Configuration domains and approvals files with unsaved edits.",
		}),
	}
	reg.MustRegister(m.RPCRequests, m.RPCDuration, m.Writes, m.Dirty)
	return m
}

// ObserveCall implements rpc.Observer.
func (m *Metrics) ObserveCall(method, status string, elapsed time.Duration) {
	m.RPCRequests.WithLabelValues(method, status).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveWrite counts a write attempt. It matches configsync.Options.OnWrite.
func (m *Metrics) ObserveWrite(op string, err error) {
	m.Writes.WithLabelValues(op, WriteResult(err)).Inc()
}

// ObserveApprovalsWrite matches approvals.Options.OnWrite.
func (m *Metrics) ObserveApprovalsWrite(err error) {
	m.ObserveWrite(OpApprovals, err)
}

// SetDirty records the number of dirty domains.
func (m *Metrics) SetDirty(n int) {
	m.Dirty.Set(float64(n))
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteResult labels the outcome of a write.
func WriteResult(err error) string {
	var verr *configsync.ValidationError
	var terr *configsync.TransportError
	switch {
	case err == nil:
		return ResultOK
	case errors.As(err, &verr):
		return ResultInvalid
	case errors.Is(err, configsync.ErrStaleHash):
		return ResultStale
	case errors.As(err, &terr):
		return ResultTransport
	default:
		return ResultError
	}
}
