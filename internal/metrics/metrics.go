package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "servicehub"

// Recorder counts the events the address and cart services care about.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	conflicts       *prometheus.CounterVec
	limitRejections *prometheus.CounterVec
	cartMutations   *prometheus.CounterVec
	defaultAssigned *prometheus.CounterVec
	requests        *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_conflicts_total",
			Help:      "Writes rejected because concurrent state changed underneath them.",
		}, []string{"component"}),
		limitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_rejections_total",
			Help:      "Requests rejected by a business cap.",
		}, []string{"component", "limit"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Persisted cart writes by operation.",
		}, []string{"op"}),
		defaultAssigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_default_assigned_total",
			Help:      "Addresses that became the owner's default, by reason.",
		}, []string{"reason"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(r.conflicts, r.limitRejections, r.cartMutations, r.defaultAssigned, r.requests)
	return r
}

func (r *Recorder) Conflict(component string) {
	if r == nil {
		return
	}
	r.conflicts.WithLabelValues(component).Inc()
}

func (r *Recorder) LimitRejected(component, limit string) {
	if r == nil {
		return
	}
	r.limitRejections.WithLabelValues(component, limit).Inc()
}

func (r *Recorder) CartMutation(op string) {
	if r == nil {
		return
	}
	r.cartMutations.WithLabelValues(op).Inc()
}

func (r *Recorder) DefaultAssigned(reason string) {
	if r == nil {
		return
	}
	r.defaultAssigned.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveRequest(method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
