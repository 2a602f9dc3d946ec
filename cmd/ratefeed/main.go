package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/OHMS-DeAI/ratefeed/pkg/config"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/bus"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/cache"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/fx"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/ratelimit"
	"github.com/OHMS-DeAI/ratefeed/pkg/feed/sources"
	"github.com/OHMS-DeAI/ratefeed/pkg/logging"
	"github.com/OHMS-DeAI/ratefeed/pkg/metrics"
	"github.com/OHMS-DeAI/ratefeed/pkg/server/api"
	"github.com/OHMS-DeAI/ratefeed/pkg/storage"
)

const version = "0.1.0-dev"

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("ratefeed version %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting ratefeed", "version", version, "pair", cfg.Pair.Base+"/"+cfg.Pair.Quote)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		logger.Info("Metrics enabled", "addr", cfg.Metrics.Addr)
	}

	// Build the source registry
	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Fatal("Failed to build source registry", "error", err)
	}

	// Persistence facade
	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}

	// Engine collaborators
	priceCache := cache.New(cfg.Engine.CacheTTL.ToDuration(), nil)
	priceBus := bus.New(priceCache.Latest, logger)
	limiter := ratelimit.New(nil)
	fetcher := sources.NewClient(cfg.Engine.FetchTimeout.ToDuration())

	engine, err := feed.New(feed.Config{
		Registry:        registry,
		Fetcher:         fetcher,
		Limiter:         limiter,
		Cache:           priceCache,
		Bus:             priceBus,
		Store:           store,
		RefreshInterval: cfg.Engine.RefreshInterval.ToDuration(),
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Failed to construct engine", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		logger.Fatal("Failed to start engine", "error", err)
	}

	// Conversion service reads the cache directly
	fallbackRate, _ := decimal.NewFromString(cfg.Engine.FallbackPrice)
	fxsvc := fx.NewService(priceCache.Latest, fallbackRate)

	// API server
	server := api.NewServer(cfg.Server.HTTP.Addr, engine, fxsvc, logger)

	var wsServer *api.WebSocketServer
	var wsSubscription string
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		server.SetWebSocketServer(wsServer)
		wsSubscription = engine.Subscribe(wsServer.SendUpdate)
		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if wsServer != nil {
		engine.Unsubscribe(wsSubscription)
		wsServer.Stop()
	}
	engine.Stop()
	logger.Info("Shutdown complete")
}

// buildRegistry assembles descriptors for the enabled sources, selecting
// the parser by source name.
func buildRegistry(cfg *config.Config) (*sources.Registry, error) {
	fallbackPrice, err := decimal.NewFromString(cfg.Engine.FallbackPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid fallback price: %w", err)
	}

	descriptors := make([]sources.Descriptor, 0, len(cfg.Sources))
	for _, sc := range cfg.EnabledSources() {
		var parse sources.ParseFunc
		switch strings.ToLower(sc.Name) {
		case "coingecko":
			parse = sources.CoinGecko(sc.Symbol, cfg.Pair.Quote)
		case "coinmarketcap":
			parse = sources.CoinMarketCap(sc.Symbol, cfg.Pair.Quote)
		case "cryptocompare":
			parse = sources.CryptoCompare(sc.Symbol, cfg.Pair.Quote)
		default:
			return nil, fmt.Errorf("no parser for source %q", sc.Name)
		}

		descriptors = append(descriptors, sources.Descriptor{
			Name:              sc.Name,
			URL:               sc.URL,
			Parse:             parse,
			RequestsPerMinute: sc.RequestsPerMinute,
			Priority:          sc.Priority,
		})
	}

	return sources.NewRegistry(fallbackPrice, descriptors...)
}

// buildStore selects the persistence backend.
func buildStore(cfg *config.Config, logger *logging.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		store := storage.NewRedis(client, cfg.Storage.Key, logger)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			// Persistence is warm-start only; a dead Redis should not keep
			// the feed from serving prices.
			logger.Warn("Redis unreachable, continuing without warm start", "error", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemory(cfg.Storage.Key), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
