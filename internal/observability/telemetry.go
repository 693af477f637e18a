package observability

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

var (
	// PrometheusExporter is the registry served on /metrics.
	PrometheusExporter *prometheus.Registry

	// TelemetrySystem records bridge operations into PrometheusExporter.
	TelemetrySystem *bridge.PrometheusObserver

	telemetryMu sync.Mutex
)

// InitTelemetry creates the process registry (Go runtime and process
// collectors included) and the bridge observer. Calling it again returns
// the existing observer.
func InitTelemetry(namespace string) (*bridge.PrometheusObserver, error) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()

	if TelemetrySystem != nil && PrometheusExporter != nil {
		return TelemetrySystem, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs, err := bridge.NewPrometheusObserver(namespace, reg)
	if err != nil {
		return nil, err
	}

	PrometheusExporter = reg
	TelemetrySystem = obs
	return obs, nil
}

// TelemetryReady reports an error when InitTelemetry has not run.
func TelemetryReady() error {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()

	if TelemetrySystem == nil || PrometheusExporter == nil {
		return errors.New("telemetry system not initialized")
	}
	return nil
}
