package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/backend"
	"github.com/3leaps/nimbusbridge/internal/config"
	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/internal/server"
	"github.com/3leaps/nimbusbridge/internal/server/handlers"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP server",
	Long: `Run the admin HTTP server over a bridge with one live storage client.

Endpoints:
  /health, /health/live, /health/ready, /health/startup
  /version
  /metrics          (when metrics.enabled)
  /debug/handles    live handle counts and in-flight operations
  /debug/pprof/     (when debug.pprof_enabled)

When metrics.port differs from server.port, /metrics is also served on a
dedicated listener.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
}

// signalHealthChecker reports healthy while the process is serving.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(context.Context) error {
	return nil
}

// telemetryHealthChecker fails until the metrics registry exists.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(context.Context) error {
	return observability.TelemetryReady()
}

// identityHealthChecker verifies the application identity is complete.
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (c identityHealthChecker) CheckHealth(context.Context) error {
	switch {
	case c.binaryName == "":
		return errors.New("missing binary name")
	case c.envPrefix == "":
		return errors.New("missing env prefix")
	case c.configName == "":
		return errors.New("missing config name")
	}
	return nil
}

// storageHealthChecker fails when the bridge holds no live client.
type storageHealthChecker struct {
	bridge *bridge.Bridge
}

func (c storageHealthChecker) CheckHealth(context.Context) error {
	if c.bridge == nil || c.bridge.Stats().Clients == 0 {
		return errors.New("no live storage client")
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.GetConfig()
	if cfg == nil {
		return exitError(foundry.ExitInvalidArgument, "Configuration not loaded", fmt.Errorf("run through the root command"))
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named(config.DefaultIdentity.BinaryName)

	b := bridge.New(backend.Factory(cfg), logger.Named("bridge"))
	if cfg.Metrics.Enabled {
		obs, err := observability.InitTelemetry(cfg.Metrics.Namespace)
		if err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to initialize metrics", err)
		}
		b.WithObserver(obs)
	}

	client, st := b.CreateClientWithStatus()
	if st != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", st.Err())
	}
	defer b.DestroyClient(client)

	handlers.InitHealthManager(versionInfo.Version)
	if cfg.Health.Enabled {
		registerHealthCheckers(handlers.GetHealthManager(), b, cfg.Metrics.Enabled)
	}

	host, port := cfg.Server.Host, cfg.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(host, port).
		WithLogger(logger).
		WithBridge(b).
		WithPprof(cfg.Debug.PprofEnabled).
		WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	var metricsSrv *server.Server
	if cfg.Metrics.Enabled {
		srv = srv.WithMetrics(observability.PrometheusExporter)
		if cfg.Metrics.Port != port {
			metricsSrv = server.New(host, cfg.Metrics.Port).
				WithLogger(logger.Named("metrics")).
				WithMetrics(observability.PrometheusExporter)
		}
	}

	if err := srv.Start(); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to start admin server", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Start(); err != nil {
			shutdown(logger, cfg, srv)
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to start metrics server", err)
		}
	}

	observability.CLILogger.Info("Admin server running",
		zap.String("host", host),
		zap.Int("port", srv.Port()),
		zap.String("provider", cfg.Provider))

	<-ctx.Done()
	observability.CLILogger.Info("Shutting down")

	shutdown(logger, cfg, srv, metricsSrv)
	return nil
}

func registerHealthCheckers(hm *handlers.HealthManager, b *bridge.Bridge, metrics bool) {
	hm.RegisterChecker("signal", signalHealthChecker{})
	hm.RegisterChecker("storage", storageHealthChecker{bridge: b})
	if metrics {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}

	id := GetAppIdentity()
	if id == nil {
		id = &config.DefaultIdentity
	}
	hm.RegisterChecker("identity", identityHealthChecker{
		binaryName: id.BinaryName,
		envPrefix:  id.EnvPrefix,
		configName: id.ConfigName,
	})
}

func shutdown(logger *zap.Logger, cfg *config.Config, servers ...*server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if s == nil {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}
}
