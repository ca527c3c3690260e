package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"webring/internal/analytics"
	"webring/internal/health"
	"webring/internal/hits"
	"webring/internal/hits/store"
	"webring/internal/members"
	"webring/internal/monitor"
	"webring/internal/platform/clickhouse"
	"webring/internal/platform/config"
	"webring/internal/platform/httpserver"
	"webring/internal/platform/kafka"
	"webring/internal/platform/logger"
	"webring/internal/platform/metrics"
	"webring/internal/platform/postgres"
	"webring/internal/platform/redis"
	httptransport "webring/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in internal packages.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("webring exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hitStore, closeStore, err := openHitStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	loader := members.NewLoader(cfg.Members.Dir,
		members.WithOrder(members.Order(cfg.Members.Order)),
		members.WithLogger(log),
	)
	checker := health.NewChecker(
		health.WithTimeout(cfg.Health.Timeout),
		health.WithEmbedPrefix(cfg.Health.EmbedPrefix),
	)
	manager := monitor.New(loader, checker,
		monitor.WithInterval(cfg.Health.Interval),
		monitor.WithConcurrency(cfg.Health.Concurrency),
		monitor.WithLogger(log),
		monitor.WithMetrics(monitor.NewMetrics(reg)),
	)
	recorder := hits.NewRecorder(hitStore,
		hits.WithLogger(log),
		hits.WithMetrics(hits.NewMetrics(reg)),
	)
	stats := analytics.NewService(hitStore, analytics.WithLogger(log))

	handler := httptransport.NewHandler(manager, recorder, stats, httptransport.WithLogger(log))
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:     log,
		Metrics:    metrics.New(reg),
		Gatherer:   reg,
		TrustProxy: cfg.Server.TrustProxy,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := manager.Run(gctx); !errors.Is(err, context.Canceled) {
			return fmt.Errorf("health monitor: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting webring", "addr", cfg.Server.Addr, "hits_backend", cfg.Hits.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		log.Info("webring stopped")
		return nil
	})
	return g.Wait()
}

// openHitStore builds the configured hit log backend. The returned func
// releases its connections.
func openHitStore(ctx context.Context, cfg config.Config, log *slog.Logger) (hits.Store, func(), error) {
	switch cfg.Hits.Backend {
	case "", "memory":
		log.Warn("hits are kept in memory and lost on restart")
		return store.NewInMemory(), func() {}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg, func() { _ = db.Close() }, nil

	case "redis":
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("hits backend redis requires REDIS_URL")
		}
		return store.NewRedis(client.Client, cfg.Redis.StreamKey), func() { _ = client.Close() }, nil

	case "kafka":
		client, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		ks := store.NewKafka(client, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err := ks.EnsureTopic(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return ks, client.Close, nil

	case "clickhouse":
		conn, err := clickhouse.Open(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, nil, err
		}
		ch := store.NewClickHouse(conn)
		if err := ch.EnsureSchema(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return ch, func() { _ = conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown hits backend %q", cfg.Hits.Backend)
	}
}
