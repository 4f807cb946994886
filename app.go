package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/folderbridge/internal/bridge"
	"github.com/tonimelisma/folderbridge/internal/config"
	"github.com/tonimelisma/folderbridge/internal/grant"
	"github.com/tonimelisma/folderbridge/internal/listing"
	"github.com/tonimelisma/folderbridge/internal/storage"
)

// app is the per-invocation wiring: grant store, storage registry,
// resolver, and bridge.
type app struct {
	store    *grant.Store
	registry *storage.Registry
	resolver *grant.Resolver
	bridge   *bridge.Bridge
	logger   *slog.Logger
}

// openApp opens the grant database and wires the listing pipeline from the
// resolved configuration. Callers must Close the result.
func openApp(ctx context.Context, cc *CLIContext) (*app, error) {
	cfg := cc.Cfg
	logger := cc.Logger

	store, err := grant.OpenStore(ctx, cfg.GrantDB, logger)
	if err != nil {
		return nil, fmt.Errorf("opening grant database: %w", err)
	}

	registry := newRegistry(ctx, cfg, logger)
	resolver := grant.NewResolver(store, registry, logger)
	engine := listing.NewEngine(cfg.MetadataWorkers, logger)

	return &app{
		store:    store,
		registry: registry,
		resolver: resolver,
		bridge:   bridge.New(resolver, engine, logger),
		logger:   logger,
	}, nil
}

// newRegistry registers the local backend and, when the AWS configuration
// loads, the S3 backend. A missing S3 setup only disables s3:// grants.
func newRegistry(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) *storage.Registry {
	registry := storage.NewRegistry(storage.NewLocalBackend(logger))

	s3Backend, err := storage.NewS3Backend(ctx, storage.S3Options{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		PathStyle:       cfg.S3PathStyle,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}, logger)
	if err != nil {
		logger.Warn("s3 backend unavailable, s3:// grants will not resolve",
			slog.String("error", err.Error()),
		)

		return registry
	}

	registry.Register(s3Backend)

	return registry
}

// Close releases the grant database.
func (a *app) Close() error {
	return a.store.Close()
}
