package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchbar/internal/application"
	"watchbar/internal/application/port"
	"watchbar/internal/application/usecase/coordinator"
	"watchbar/internal/infrastructure/config"
	"watchbar/internal/infrastructure/exchange/coinbase"
	"watchbar/internal/infrastructure/exchange/hyperevm"
	"watchbar/internal/infrastructure/exchange/hyperliquid"
	"watchbar/internal/infrastructure/exchange/tradingview"
	"watchbar/internal/infrastructure/logger"
	"watchbar/internal/infrastructure/pricefeed"
	"watchbar/internal/infrastructure/storage/composite"
	"watchbar/internal/infrastructure/storage/postgres"
	redisrepo "watchbar/internal/infrastructure/storage/redis"
	"watchbar/internal/infrastructure/storage/sqlite"
	"watchbar/internal/infrastructure/websocket"
	"watchbar/internal/interfaces/console"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// catalogs + feeds (infrastructure -> application ports)
	catalogs, sources := buildFeeds(cfg)

	repo, err := buildStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	defer repo.Close()

	svc := coordinator.NewService(coordinator.Deps{
		Catalogs:          catalogs,
		Sources:           sources,
		Dialer:            websocket.NewDialer(),
		Repo:              repo,
		Sink:              console.NewSink(),
		SelectionMax:      cfg.Selection.Max,
		DefaultID:         cfg.Selection.Default,
		ReconnectCooldown: time.Duration(cfg.App.ReconnectCooldownSec) * time.Second,
		HealthEvery:       time.Duration(cfg.App.HealthCheckSec) * time.Second,
		StaleAfter:        time.Duration(cfg.App.StaleAfterSec) * time.Second,
		SnapshotEvery:     time.Duration(cfg.App.SnapshotEveryMin) * time.Minute,
		RolloverBuffer:    time.Duration(cfg.App.RolloverBufferSec) * time.Second,
	})

	// SIGHUP: 全组强制重连（不退出）
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				svc.ReconnectAll()
			}
		}
	}()

	go console.NewCommandReader(os.Stdin, svc).Run(ctx)

	log.Info().
		Str("config", *configPath).
		Int("catalogs", len(catalogs)).
		Int("feeds", len(sources)).
		Msg("watchbar started")

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("coordinator exited")
	}
}

// buildFeeds 按配置装配目录加载器与流式源
// 流式源经 pricefeed registry 取 factory，避免 main 对 provider 包的构造细节硬编码
func buildFeeds(cfg *config.Config) ([]port.CatalogSource, []port.StreamSource) {
	var catalogs []port.CatalogSource
	var sources []port.StreamSource

	addSource := func(group string, opt pricefeed.Options) {
		factory, ok := pricefeed.Get(group)
		if !ok {
			log.Warn().Str("group", group).Msg("no stream source factory registered")
			return
		}
		sources = append(sources, factory(opt))
	}

	if p := cfg.Provider.Coinbase; p.Enabled {
		catalogs = append(catalogs, coinbase.NewCatalog(p.RestURL))
		addSource(application.GroupCoinbase, pricefeed.Options{WsURL: p.WsURL})
	} else {
		log.Warn().Msg("coinbase disabled by config")
	}

	if p := cfg.Provider.Hyperliquid; p.Enabled {
		catalogs = append(catalogs,
			hyperliquid.NewPerpCatalog(p.RestURL),
			hyperliquid.NewSpotCatalog(p.RestURL))
		addSource(application.GroupHyper, pricefeed.Options{WsURL: p.WsURL})
	} else {
		log.Warn().Msg("hyperliquid disabled by config")
	}

	if p := cfg.Provider.HyperEVM; p.Enabled {
		catalogs = append(catalogs, hyperevm.NewCatalog(p.RestURL, p.Dex))
		addSource(application.GroupHyperEVM, pricefeed.Options{WsURL: p.WsURL, Dex: p.Dex})
	} else {
		log.Warn().Msg("hyperevm disabled by config")
	}

	if p := cfg.Provider.TradingView; p.Enabled {
		catalogs = append(catalogs, tradingview.NewCatalog(p.RestURL, p.ScanMarket, p.ScanLimit))
		addSource(application.GroupTradingView, pricefeed.Options{WsURL: p.WsURL})
	} else {
		log.Warn().Msg("tradingview disabled by config")
	}

	return catalogs, sources
}

// buildStorage sqlite 永远在线（选择集权威存储）；redis / postgres 按配置加挂
func buildStorage(cfg *config.Config) (port.Repository, error) {
	sq, err := sqlite.New(cfg.Storage.SQLite.Path)
	if err != nil {
		return nil, err
	}
	repos := []port.Repository{sq}

	if cfg.Storage.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.Redis.Addr})
		ttl := time.Duration(cfg.Storage.Redis.TTLSec) * time.Second
		repos = append(repos, redisrepo.New(rdb, cfg.Storage.Redis.Prefix, ttl))
		log.Info().Str("addr", cfg.Storage.Redis.Addr).Msg("redis mirror enabled")
	}

	if cfg.Storage.Postgres.Enabled {
		pg, err := postgres.New(cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		repos = append(repos, pg)
		log.Info().Msg("postgres mirror enabled")
	}

	return composite.New(repos...), nil
}
