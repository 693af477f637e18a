// Command libnimbusbridge is the C shared library exposing the bridge.
//
// Build with:
//
//	go build -buildmode=c-shared -o libnimbusbridge.so ./cmd/libnimbusbridge
//
// Configuration is read once, on first use, from NIMBUSBRIDGE_* variables and
// the optional config file (see internal/config).
package main

/*
#include "shim.h"
*/
import "C"

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusbridge/internal/backend"
	"github.com/3leaps/nimbusbridge/internal/config"
	"github.com/3leaps/nimbusbridge/internal/observability"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/provider"
)

var (
	initOnce sync.Once
	shared   *bridge.Bridge
	cfg      *config.Config
	logger   = zap.NewNop()
)

func main() {}

// instance returns the process-wide bridge, building it on first use.
func instance() *bridge.Bridge {
	initOnce.Do(func() {
		shared = bootstrap(context.Background())
	})
	return shared
}

func bootstrap(ctx context.Context) *bridge.Bridge {
	loaded, err := config.Load(ctx)
	if err != nil {
		if l, lerr := observability.NewLogger("info", observability.ProfileStructured); lerr == nil {
			logger = l.Named("nimbusbridge")
		}
		logger.Error("configuration load failed", zap.Error(err))
		// Every client construction reports the configuration error.
		return bridge.New(func(context.Context) (provider.Client, error) { return nil, err }, logger)
	}
	cfg = loaded

	if l, lerr := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile); lerr == nil {
		logger = l.Named("nimbusbridge")
	}

	b := bridge.New(backend.Factory(cfg), logger)
	if cfg.Metrics.Enabled {
		obs, err := observability.InitTelemetry(cfg.Metrics.Namespace)
		if err != nil {
			logger.Warn("metrics disabled", zap.Error(err))
		} else {
			b.WithObserver(obs)
		}
	}
	logger.Debug("bridge initialized", zap.String("provider", cfg.Provider))
	return b
}
