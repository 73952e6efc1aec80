package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/api"
	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/config"
	"github.com/atelierhq/atelier/pkg/middleware"
	"github.com/atelierhq/atelier/pkg/observability"
	"github.com/atelierhq/atelier/pkg/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	observability.SetupLogging(cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize tracing")
	}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	recorder := activity.NewRecorder(db, cfg.Activity.BufferSize)

	var redisClient *redis.Client
	var rateLimit func(http.Handler) http.Handler
	if cfg.Redis.RateLimitEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		rateLimit = middleware.NewRateLimitMiddleware(redisClient).Handler
		logrus.WithField("addr", cfg.Redis.Addr).Info("distributed rate limiting enabled")
	}

	server := api.NewServer(api.ServerConfig{
		DB:        db,
		Verifier:  auth.NewPostgresVerifier(db),
		Trail:     recorder,
		RateLimit: rateLimit,
	})

	registry := prometheus.NewRegistry()
	handler := server.Handler()
	if cfg.Observability.MetricsEnabled {
		metrics := observability.NewMetrics(registry, func() float64 {
			return float64(recorder.Dropped())
		})
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "atelier")
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	healthMux.HandleFunc("/healthz", checker.Liveness)
	healthMux.HandleFunc("/readyz", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logrus.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("api server shutdown")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("health server shutdown")
		}
		if err := recorder.Close(); err != nil {
			logrus.WithError(err).Warn("activity recorder shutdown")
		}
		if err := observability.ShutdownTracing(shutdownCtx, tp); err != nil {
			logrus.WithError(err).Warn("tracer shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("server error")
	}
	logrus.Info("stopped")
}
