package bridge

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
)

// Observer receives telemetry from the bridge. Implementations must be safe
// for concurrent use.
type Observer interface {
	OperationStarted(op string)
	OperationFinished(op string, code codes.Code, duration time.Duration)
	HandlesChanged(kind string, live int)
	BytesWritten(n int)
}

// Handle kinds reported to HandlesChanged.
const (
	KindClient   = "client"
	KindWriter   = "writer"
	KindEnvelope = "envelope"
)

type nopObserver struct{}

func (nopObserver) OperationStarted(string)                             {}
func (nopObserver) OperationFinished(string, codes.Code, time.Duration) {}
func (nopObserver) HandlesChanged(string, int)                          {}
func (nopObserver) BytesWritten(int)                                    {}

// PrometheusObserver exports bridge metrics to Prometheus.
type PrometheusObserver struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
	handles      *prometheus.GaugeVec
	bytesWritten prometheus.Counter
}

var _ Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers the bridge collectors on reg. Collectors
// already registered under the same names are reused.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "nimbusbridge"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Completed bridge operations by operation and status code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of bridge operations from submit to delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations_in_flight",
			Help:      "Asynchronous operations submitted but not yet delivered.",
		}, []string{"operation"}),
		handles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_handles",
			Help:      "Handles issued across the boundary and not yet released.",
		}, []string{"kind"}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Bytes accepted by write stream sessions.",
		}),
	}

	var err error
	if o.operations, err = registerOrReuse(reg, o.operations); err != nil {
		return nil, err
	}
	if o.duration, err = registerOrReuse(reg, o.duration); err != nil {
		return nil, err
	}
	if o.inFlight, err = registerOrReuse(reg, o.inFlight); err != nil {
		return nil, err
	}
	if o.handles, err = registerOrReuse(reg, o.handles); err != nil {
		return nil, err
	}
	if o.bytesWritten, err = registerOrReuse(reg, o.bytesWritten); err != nil {
		return nil, err
	}
	return o, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register bridge metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) OperationStarted(op string) {
	o.inFlight.WithLabelValues(op).Inc()
}

func (o *PrometheusObserver) OperationFinished(op string, code codes.Code, duration time.Duration) {
	o.inFlight.WithLabelValues(op).Dec()
	o.operations.WithLabelValues(op, code.String()).Inc()
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func (o *PrometheusObserver) HandlesChanged(kind string, live int) {
	o.handles.WithLabelValues(kind).Set(float64(live))
}

func (o *PrometheusObserver) BytesWritten(n int) {
	o.bytesWritten.Add(float64(n))
}
