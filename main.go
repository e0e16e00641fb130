package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"taskboard/api"
	"taskboard/config"
	"taskboard/domain"
	"taskboard/events"
	"taskboard/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracer provider shutdown failed")
		}
	}()

	var store domain.Repository
	switch cfg.StorageBackend {
	case config.BackendTables:
		ts, err := storage.NewTableStore(cfg.StorageConnectionString, cfg.TasksTable, cfg.Board)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		store = ts
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		pg := storage.NewPgStore(pool)
		if err := pg.EnsureTable(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		store = pg
	default:
		store = storage.NewFileStore(cfg.DataFile)
	}

	broker := events.NewBroker()
	opts := api.Options{Broker: broker, Logger: log.New(), RequestTimeout: cfg.RequestTimeout}
	opts.Logger.SetLevel(log.GetLevel())

	publishers := events.Multi{}
	if cfg.RedisConnectionString != "" {
		redisOpts, err := config.RedisOptions(cfg.RedisConnectionString)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rc := redis.NewClient(redisOpts)
		defer rc.Close()

		if cfg.CacheTTL > 0 {
			store = storage.NewCache(store, rc, cfg.Board, cfg.CacheTTL)
		}
		opts.Deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
		publishers = append(publishers, events.NewRedisPublisher(rc, cfg.EventsChannel))
		go events.SubscribeUpdates(ctx, rc, cfg.EventsChannel, func(events.Event) { broker.Notify() })
	} else {
		publishers = append(publishers, broker)
	}
	if cfg.EventsQueue != "" {
		qp, err := events.NewQueuePublisher(cfg.StorageConnectionString, cfg.EventsQueue)
		if err != nil {
			log.Fatalf("events queue: %v", err)
		}
		publishers = append(publishers, qp)
	}
	repo := events.NewRepository(store, publishers)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "Idempotency-Key"},
	}))
	e.Use(api.DecompressRequest())
	api.Register(e, repo, opts)

	listenAddr := ":" + cfg.Port
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"addr": listenAddr, "backend": cfg.StorageBackend}).Info("task API listening")
	if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
