package main

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow/api"
	"taskflow/storage"
)

type config struct {
	ListenAddr   string        `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabasePath string        `env:"DATABASE_PATH"`
	RedisConn    string        `env:"REDIS_CONNECTION_STRING"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"1m"`
	SeedDemo     bool          `env:"SEED_DEMO_DATA"`
	OTelEndpoint string        `env:"OTEL_ENDPOINT"`
	Debug        bool          `env:"DEBUG"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()
	shutdownTracing, err := setupTracing(ctx, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Errorf("tracing shutdown: %v", err)
		}
	}()

	var store storage.Store
	if cfg.DatabasePath != "" {
		s, err := storage.NewSQLite(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		defer s.Close()
		store = s
		log.WithField("path", cfg.DatabasePath).Info("using sqlite store")
	} else {
		store = storage.NewMemory()
		log.Info("DATABASE_PATH not set; using in-memory store")
	}

	if cfg.SeedDemo {
		if err := storage.SeedDemoData(ctx, store); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	if cfg.RedisConn != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisConn)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		store = storage.NewCache(store, redis.NewClient(redisOpts), cfg.CacheTTL)
		log.Info("task view cache enabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	logger := log.New()
	api.Register(e, store, logger)

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
