package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/betting-dashboard/internal/chart"
	"github.com/atmx/betting-dashboard/internal/config"
	"github.com/atmx/betting-dashboard/internal/engine"
	"github.com/atmx/betting-dashboard/internal/hub"
	"github.com/atmx/betting-dashboard/internal/store"
	"github.com/atmx/betting-dashboard/internal/watcher"
	"github.com/atmx/betting-dashboard/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, cancelWatchers := context.WithCancel(context.Background())
	defer cancelWatchers()

	// --- Initialize persistence ---
	var persister store.Persister
	var rdb *redis.Client
	var cleanup []func()

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresPersister(pool, cfg.CookieName, store.DefaultTTL)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "err", err)
			os.Exit(1)
		}
		persister = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if rdb != nil {
			persister = store.NewCachedPersister(pg, rdb, cfg.CookieName, store.DefaultTTL)
			slog.Info("Redis cache enabled")
		}
	} else if rdb != nil {
		persister = store.NewRedisPersister(rdb, cfg.CookieName, store.DefaultTTL)
		slog.Info("using Redis state store")
	} else {
		slog.Warn("DATABASE_URL and REDIS_URL not set, using in-memory store (state lasts for the process lifetime)")
		persister = store.NewMemoryPersister(store.DefaultTTL)
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	wsHub := hub.New(logger)
	go wsHub.Run()

	// --- Charts, status, engine ---
	recorder := chart.NewRecorder()
	board := web.NewStatusBoard(wsHub)

	loadCtx, cancelLoad := context.WithTimeout(ctx, 5*time.Second)
	initial := store.LoadState(loadCtx, persister, logger)
	cancelLoad()

	eng := engine.New(engine.Options{
		Store:         store.NewStateStore(initial),
		Persister:     persister,
		Renderer:      chart.Multi{recorder, chart.NewHubRenderer(wsHub)},
		Status:        board,
		Logger:        logger,
		AutoRollDelay: engine.DelayRange{Min: cfg.AutoRollDelayMin, Max: cfg.AutoRollDelayMax},
		MultiplyDelay: engine.DelayRange{Min: cfg.MultiplyDelayMin, Max: cfg.MultiplyDelayMax},
	})
	eng.Init()

	// --- Result watchers ---
	// Sources are installed independently.
	local := watcher.NewLocal()
	subs := []watcher.Subscriber{local}
	if rdb != nil {
		subs = append(subs, watcher.NewRedis(rdb, logger))
	}
	if cfg.KafkaEnabled() {
		subs = append(subs, watcher.NewKafka(cfg.KafkaBrokers, cfg.KafkaResultsTopic, cfg.KafkaGroupID, logger))
		slog.Info("kafka result watcher enabled", "topic", cfg.KafkaResultsTopic)
	}
	var unwatch []func()
	for _, sub := range subs {
		unwatch = append(unwatch, watcher.Install(ctx, sub, cfg.WatchNodeID, eng.OnExternalResultChanged, logger))
	}

	// --- HTTP server ---
	srv := web.NewServer(web.Options{
		Engine:         eng,
		Board:          board,
		Charts:         recorder,
		Hub:            wsHub,
		Watcher:        local,
		CookieName:     cfg.CookieName,
		WatchNodeID:    cfg.WatchNodeID,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("betting-dashboard listening", "port", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down betting-dashboard...")
	eng.Shutdown()
	for _, fn := range unwatch {
		fn()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	wsHub.Close()
	fmt.Println("betting-dashboard stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
