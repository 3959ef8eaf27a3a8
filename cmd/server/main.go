package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Lixing-Zhang/farmstand/internal/config"
	"github.com/Lixing-Zhang/farmstand/internal/handlers"
	"github.com/Lixing-Zhang/farmstand/internal/repository"
	"github.com/Lixing-Zhang/farmstand/internal/service"
	"github.com/Lixing-Zhang/farmstand/pkg/logger"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting farm stand server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"store", cfg.Store.Driver,
		"farms", cfg.Features.Farms,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	if cfg.Store.Seed {
		n, err := repository.Seed(ctx, store.Products())
		if err != nil {
			log.Error("failed to seed products", "error", err)
			os.Exit(1)
		}
		log.Info("seed finished", "inserted", n)
	}

	health := handlers.NewHealthHandler(log, map[string]handlers.Pinger{"store": store})

	var cache *repository.ProductCache
	if cfg.CacheEnabled() {
		cache = repository.NewProductCache(
			redis.NewClient(&redis.Options{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
			}),
			cfg.Cache.Prefix,
			cfg.Cache.TTL,
			log,
		)
		if err := cache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, product reads fall through to the store", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		health.Optional("cache", cache)
		store = repository.WithProductCache(store, cache)
		log.Info("product cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	}

	validate := service.NewValidator()
	productService := service.NewProductService(store, validate, log)

	routes := handlers.RouterConfig{
		Logger:         log,
		Health:         health,
		Products:       handlers.NewProductHandler(productService, log),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: 60 * time.Second,
	}
	if cfg.Features.Farms {
		farmService := service.NewFarmService(store, validate, log)
		routes.Farms = handlers.NewFarmHandler(farmService, log)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handlers.NewRouter(routes),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// The HTTP server drains first so in-flight units of work can finish
	// before the store goes away.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Info("shutting down server...")
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				if cache != nil {
					if err := cache.Close(); err != nil {
						log.Warn("failed to close redis client", "error", err)
					}
				}
				return store.Close(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Info("server stopped", "exit_code", exitCode)
	os.Exit(exitCode)
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverMongo:
		store, err := repository.ConnectMongo(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info("connected to mongo", "database", cfg.Database, "transactions", cfg.Transactions)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
