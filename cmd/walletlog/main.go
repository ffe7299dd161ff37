package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"walletlog/internal/amqp"
	"walletlog/internal/api/remote"
	"walletlog/internal/backend"
	"walletlog/internal/cache"
	"walletlog/internal/cli"
	"walletlog/internal/config"
	"walletlog/internal/graphql"
	apphttp "walletlog/internal/http"
	"walletlog/internal/log"
	"walletlog/internal/middleware/ratelimit"
	"walletlog/internal/middleware/trace"
	"walletlog/internal/session"
	"walletlog/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 10 * time.Minute
	sessionMaxIdle  = 30 * 24 * time.Hour
	outboundAgent   = "walletlog"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("walletlog stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx := cli.WithLogger(context.Background(), logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	if store.Cleanup != nil {
		defer func() {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Session backend close failed", log.FieldError, err.Error())
			}
		}()
	}

	sessions := session.NewManager(store.Backend, session.Options{
		CookieName:  cfg.SessionCookieName,
		Secure:      cfg.SessionCookieSecure,
		CheckExpiry: cfg.SessionCheckExpiry,
		MaxAge:      sessionMaxIdle,
	})

	clientOpts := []graphql.Option{graphql.WithCache(cfg.APICacheSize, cfg.APICacheTTL)}
	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, uuid.NewString())
		if err != nil {
			logger.Warn("AMQP unavailable, cache invalidation stays local",
				log.FieldComponent, log.ComponentAMQP, log.FieldError, err.Error())
			bus = nil
		} else {
			clientOpts = append(clientOpts, graphql.WithMutationHook(bus.MutationHook()))
		}
	}

	// One pipeline and client for the whole process.
	pipeline := graphql.NewPipeline(
		graphql.NewHTTPTransport(cfg.APIEndpoint, &http.Client{Timeout: cfg.APITimeout}),
		graphql.BearerAuth(sessions),
		graphql.RequestID(trace.GetRequestID),
		graphql.StaticHeaders(map[string]string{"User-Agent": outboundAgent}),
	)
	client := graphql.NewClient(pipeline, clientOpts...)

	caches := cache.NewManager()
	caches.Register(client)
	if c := backend.IdleCleaner(store.Backend, sessionMaxIdle, logger.Logger); c != nil {
		caches.Register(c)
	}
	caches.StartCleanup(cleanupInterval)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		API:        remote.New(client),
		Sessions:   sessions,
		Cache:      client,
		Logger:     logger,
		RateLimit:  ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		APITimeout: cfg.APITimeout,
		Probes:     map[string]func(context.Context) error{"sessions": store.Backend.Ping},
	})
	if err != nil {
		caches.Stop()
		return err
	}
	srv.MaxHeaderBytes = 1 << 16
	srv.OnShutdown(caches.Stop)

	if bus != nil {
		invalidations := worker.NewInvalidationWorker(bus, client)
		invalidations.Start(ctx)
		srv.OnShutdown(func() {
			invalidations.Stop()
			if err := bus.Close(); err != nil {
				logger.Warn("AMQP close failed", log.FieldError, err.Error())
			}
		})
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, srv.Shutdown)

	logger.Info("Starting walletlog server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"api_endpoint", cfg.APIEndpoint,
		"session_backend", cfg.SessionBackend,
		"amqp", bus != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = srv.Shutdown(context.Background())
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
