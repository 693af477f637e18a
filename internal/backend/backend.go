// Package backend builds storage collaborators from configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/3leaps/nimbusbridge/internal/config"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
	"github.com/3leaps/nimbusbridge/pkg/provider"
	"github.com/3leaps/nimbusbridge/pkg/provider/file"
	"github.com/3leaps/nimbusbridge/pkg/provider/s3"
)

// Open constructs the collaborator selected by cfg.Provider.
func Open(ctx context.Context, cfg *config.Config) (provider.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend: nil config")
	}

	switch provider.ProviderType(cfg.Provider) {
	case provider.ProviderS3, "":
		return s3.New(ctx, S3Config(cfg.S3))
	case provider.ProviderFile:
		return file.New(file.Config{BaseDir: cfg.File.BaseDir})
	default:
		return nil, fmt.Errorf("backend: unsupported provider %q", cfg.Provider)
	}
}

// S3Config converts the configuration section into the provider's config.
func S3Config(c config.S3Config) s3.Config {
	return s3.Config{
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		Profile:         c.Profile,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		ForcePathStyle:  c.ForcePathStyle,
		PartSizeMB:      c.PartSizeMB,
		Concurrency:     c.Concurrency,
		RateLimit:       c.RateLimit,
	}
}

// Factory returns a bridge client factory that opens a fresh collaborator
// from cfg on every call.
func Factory(cfg *config.Config) bridge.ClientFactory {
	return func(ctx context.Context) (provider.Client, error) {
		return Open(ctx, cfg)
	}
}
