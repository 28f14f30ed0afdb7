// Package metrics exposes sync counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "organizer"

// Result labels.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultExpired = "expired"
)

// Recorder records sync activity. A nil *Recorder records nothing, so
// callers never need to check for it.
type Recorder struct {
	loads          *prometheus.CounterVec
	loadDuration   prometheus.Histogram
	writes         *prometheus.CounterVec
	suppressed     *prometheus.CounterVec
	malformedRows  *prometheus.CounterVec
	sessionExpired prometheus.Counter
}

// New registers the collectors with reg. Use prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Full loads from the remote store, by result.",
		}, []string{"result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of full loads from the remote store.",
			Buckets:   prometheus.DefBuckets,
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Debounced collection writes, by collection and result.",
		}, []string{"collection", "result"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_suppressed_total",
			Help:      "Writes dropped because a load was running or the session was not ready.",
		}, []string{"collection"}),
		malformedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_rows_total",
			Help:      "Rows skipped while reading a range.",
		}, []string{"range"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_expired_total",
			Help:      "Times the session was forced out because the token expired.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.loads, r.loadDuration, r.writes, r.suppressed, r.malformedRows, r.sessionExpired)
	}
	return r
}

func (r *Recorder) Load(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.loads.WithLabelValues(result).Inc()
	r.loadDuration.Observe(d.Seconds())
}

func (r *Recorder) Write(collection, result string) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(collection, result).Inc()
}

func (r *Recorder) Suppressed(collection string) {
	if r == nil {
		return
	}
	r.suppressed.WithLabelValues(collection).Inc()
}

func (r *Recorder) MalformedRows(rng string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.malformedRows.WithLabelValues(rng).Add(float64(n))
}

func (r *Recorder) SessionExpired() {
	if r == nil {
		return
	}
	r.sessionExpired.Inc()
}
