// Command chatd serves the chat ledger, the content store and the ledger
// event stream over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/auth"
	"github.com/DeBrosOfficial/wavechat/pkg/config"
	"github.com/DeBrosOfficial/wavechat/pkg/content"
	"github.com/DeBrosOfficial/wavechat/pkg/gateway"
	"github.com/DeBrosOfficial/wavechat/pkg/ipfs"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
	"github.com/DeBrosOfficial/wavechat/pkg/observability"
	"github.com/DeBrosOfficial/wavechat/pkg/olric"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

const eventBuffer = 64

func main() {
	cfg, source, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	logConfig(logger, cfg, source)

	if err := run(cfg, logger); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "chatd stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.ColoredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func(context.Context) error
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				logger.ComponentWarn(logging.ComponentGeneral, "shutdown step failed", zap.Error(err))
			}
		}
	}()

	obs, err := observability.Init(ctx, observability.Config{
		Enabled:      cfg.Observability.Enabled,
		ServiceName:  cfg.Observability.ServiceName,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		SamplingRate: cfg.Observability.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	closers = append(closers, obs.Shutdown)

	metrics, err := observability.NewLedgerMetrics(obs.Meter)
	if err != nil {
		return fmt.Errorf("ledger metrics: %w", err)
	}

	ledgerStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("ledger store: %w", err)
	}
	closers = append(closers, func(context.Context) error { return ledgerStore.Close() })

	// Sign-in nonces and sessions get their own namespace next to the ledger.
	authCfg := cfg.Store
	authCfg.Namespace = cfg.Store.Namespace + "_auth"
	authStore, err := openStore(ctx, authCfg, logger)
	if err != nil {
		return fmt.Errorf("auth store: %w", err)
	}
	closers = append(closers, func(context.Context) error { return authStore.Close() })

	checks := map[string]gateway.HealthCheck{}
	blobs, err := openContent(cfg.Content, logger)
	if err != nil {
		return fmt.Errorf("content store: %w", err)
	}
	checks["content"] = blobs.Health

	if cfg.Cache.Enabled {
		cache, err := olric.NewClient(olric.Config{
			Servers: cfg.Cache.OlricServers,
			DMap:    cfg.Cache.DMap,
		}, logger.Logger)
		if err != nil {
			return fmt.Errorf("olric cache: %w", err)
		}
		closers = append(closers, cache.Close)
		checks["cache"] = cache.Health
		blobs = content.NewCachedStore(blobs, cache, cfg.Cache.TTL, logger)
	}

	broker := ledger.NewBroker(eventBuffer)
	l := ledger.New(ledgerStore,
		ledger.WithLogger(logger),
		ledger.WithMetrics(metrics),
		ledger.WithEventSink(ledger.MultiSink{broker, ledger.LogSink{Logger: logger}}),
		ledger.WithDefaultPageSize(cfg.Ledger.DefaultPageSize),
	)
	version, err := l.Bootstrap(ctx, cfg.Node.Label)
	if err != nil {
		return fmt.Errorf("bootstrap ledger: %w", err)
	}

	authService := auth.NewService(authStore, auth.Config{
		ChallengeTTL: cfg.Gateway.ChallengeTTL,
		SessionTTL:   cfg.Gateway.SessionTTL,
	}, logger)

	gw := gateway.New(gateway.Config{
		RequestTimeout: cfg.Gateway.RequestTimeout,
		MaxBodyBytes:   cfg.Gateway.MaxBodyBytes,
	}, gateway.Deps{
		Ledger:        l,
		Content:       blobs,
		Auth:          authService,
		Broker:        broker,
		Observability: obs,
		Logger:        logger,
		HealthChecks:  checks,
	})

	server := &http.Server{
		Addr:              cfg.Gateway.ListenAddr,
		Handler:           gw.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.ComponentInfo(logging.ComponentGeneral, "chatd HTTP server starting",
			zap.String("addr", cfg.Gateway.ListenAddr),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.ComponentInfo(logging.ComponentGeneral, "Shutting down chatd HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "HTTP server shutdown error", zap.Error(err))
	}
	logger.ComponentInfo(logging.ComponentGeneral, "chatd shutdown complete")
	return nil
}

func openStore(ctx context.Context, sc config.StoreConfig, logger *logging.ColoredLogger) (storage.Store, error) {
	switch sc.Backend {
	case "sqlite":
		return storage.OpenSQLite(ctx, sc.SQLitePath, sc.Namespace, logger.Logger)
	case "rqlite":
		return storage.OpenRQLite(ctx, sc.RQLiteURL, sc.Namespace, logger.Logger)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func openContent(cc config.ContentConfig, logger *logging.ColoredLogger) (content.Store, error) {
	if cc.Backend != "ipfs" {
		return content.NewMemoryStore(), nil
	}
	client, err := ipfs.NewClient(ipfs.Config{
		ClusterAPIURL: cc.ClusterAPIURL,
		IPFSAPIURL:    cc.IPFSAPIURL,
		Timeout:       cc.Timeout,
	}, logger.Logger)
	if err != nil {
		return nil, err
	}
	return content.NewIPFSStore(client, content.IPFSOptions{
		ReplicationFactor: cc.ReplicationFactor,
		MaxSize:           cc.MaxSize,
		Logger:            logger,
	}), nil
}
