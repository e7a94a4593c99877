package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/betabet/internal/api"
	"github.com/hfi/betabet/internal/audit"
	"github.com/hfi/betabet/internal/config"
	"github.com/hfi/betabet/internal/logging"
	"github.com/hfi/betabet/internal/mapfile"
	"github.com/hfi/betabet/internal/metrics"
	"github.com/hfi/betabet/internal/server"
	"github.com/hfi/betabet/internal/storage"
	"github.com/hfi/betabet/pkg/cipher"
	"github.com/hfi/betabet/pkg/shareid"
)

const minCleanupInterval = time.Minute

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	listen := fs.String("listen", "", "listen address (overrides server.listen)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	logger, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to configure logging: %v\n", err)
		return 1
	}

	auditor, err := audit.NewLogger(&audit.Config{
		Enabled: cfg.Logging.Audit.Enabled,
		Level:   cfg.Logging.Audit.Level,
		Output:  cfg.Logging.Audit.Output,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to open audit log")
		return 1
	}
	defer func() { _ = auditor.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger, auditor); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger, auditor audit.Auditor) error {
	source := mappingLabel(cfg.Cipher.MappingFile)
	m, err := mapfile.LoadValidated(cfg.Cipher.MappingFile)
	if err != nil {
		auditor.LogMappingRejected(source, err.Error())
		return err
	}
	auditor.LogMappingLoaded(source, m.Len())
	logger.Info().Str("mapping", source).Int("entries", m.Len()).Msg("mapping loaded")

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open share store: %w", err)
	}
	defer func() { _ = store.Close() }()

	a := api.New(
		api.WithCipher(cipher.New(m)),
		api.WithStore(store),
		api.WithIDGenerator(shareid.NewGenerator(cfg.Server.ShareIDPrefix)),
		api.WithAuditor(auditor),
		api.WithLogger(logger),
		api.WithNormalization(cfg.Cipher.Normalize),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Server.Listen
	srvCfg.MetricsEnabled = cfg.Metrics.Enabled
	if cfg.Metrics.Endpoint != "" {
		srvCfg.MetricsPath = cfg.Metrics.Endpoint
	}
	srvCfg.Version = Version

	srv := server.New(srvCfg, a, logger)
	srv.RegisterHealthCheck("share_store", server.PingCheck(store))

	go sweepShares(ctx, store, cleanupInterval(cfg.Storage.TTL), logger, auditor)

	logger.Info().
		Str("version", Version).
		Str("storage", cfg.Storage.Type).
		Msg("betabet starting")
	return srv.Run(ctx)
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 2; interval > minCleanupInterval {
		return interval
	}
	return minCleanupInterval
}

// sweepShares drops expired shares and keeps the store size gauge current.
func sweepShares(ctx context.Context, store storage.ShareStore, interval time.Duration, logger zerolog.Logger, auditor audit.Auditor) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(); err != nil {
				logger.Warn().Err(err).Msg("share cleanup failed")
				auditor.LogError(audit.EventStorageError, "", err.Error())
				continue
			}
			metrics.ShareStoreSize.Set(float64(store.Size()))
		}
	}
}
