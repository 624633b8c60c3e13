package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/data"
	"github.com/KotFed0t/asset_tracker/data/storage"
	"github.com/KotFed0t/asset_tracker/internal/assetStore"
	"github.com/KotFed0t/asset_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/asset_tracker/internal/externalApi/coingeckoApi"
	"github.com/KotFed0t/asset_tracker/internal/externalApi/exchangeRateApi"
	"github.com/KotFed0t/asset_tracker/internal/externalApi/fundApi"
	"github.com/KotFed0t/asset_tracker/internal/externalApi/tencentApi"
	"github.com/KotFed0t/asset_tracker/internal/externalApi/yahooApi"
	"github.com/KotFed0t/asset_tracker/internal/httpServer"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/priceFetcher"
	"github.com/KotFed0t/asset_tracker/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/asset_tracker/internal/scheduler"
	"github.com/KotFed0t/asset_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/asset_tracker/internal/tgbot"
	"github.com/KotFed0t/asset_tracker/internal/transport/telegram"
	"github.com/KotFed0t/asset_tracker/internal/transport/web"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy, ok := model.ParseFailurePolicy(cfg.Price.FailurePolicy)
	if !ok {
		slog.Error("unknown price failure policy", slog.String("policy", cfg.Price.FailurePolicy))
		os.Exit(1)
	}
	mode, ok := model.ParsePriceMode(cfg.Price.Mode)
	if !ok {
		slog.Error("unknown price mode", slog.String("mode", cfg.Price.Mode))
		os.Exit(1)
	}

	blobStorage, closeStorage := setupStorage(cfg)
	defer closeStorage()

	store := assetStore.New(blobStorage, cfg.Storage.Key, cfg.StoreSeedDemo)
	if err := store.Load(ctx); err != nil {
		slog.Error("failed on store.Load", slog.String("err", err.Error()))
		os.Exit(1)
	}

	fetchers := setupFetchers(cfg, mode, store)

	var backup portfolioService.BackupStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		drive, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("failed on googleDriveApi.New", slog.String("err", err.Error()))
			os.Exit(1)
		}
		backup = drive
	}

	portfolioSrv := portfolioService.New(store, fetchers, xslsxGenerator.New(), backup, policy)

	sched := scheduler.New()
	if err := sched.NewIntervalJob("refresh prices", portfolioSrv.RefreshJob, cfg.Jobs.RefreshInterval, true); err != nil {
		slog.Error("failed on sched.NewIntervalJob", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if backup != nil {
		if err := sched.NewCrontabJob("backup portfolio", portfolioSrv.BackupJob, cfg.Jobs.BackupCrontab, false); err != nil {
			slog.Error("failed on sched.NewCrontabJob", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := httpServer.New(cfg, web.NewRouter(cfg, portfolioSrv))
	srv.Start()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		srv.Stop(shutdownCtx)
		portfolioSrv.Wait()
	}()

	if cfg.Telegram.Token != "" {
		tgBot := tgbot.New(cfg, telegram.NewController(portfolioSrv))
		tgBot.Start()
		defer tgBot.Stop()
	}

	slog.Info("asset tracker started", slog.String("priceMode", string(mode)), slog.String("failurePolicy", string(policy)))

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupStorage(cfg *config.Config) (assetStore.Storage, func()) {
	switch cfg.Storage.Driver {
	case "redis":
		redisClient := data.NewRedisClient(cfg)
		return storage.NewRedisStorage(redisClient), func() { _ = redisClient.Close() }
	case "postgres":
		pgClient := data.NewPostgresClient(cfg)
		return storage.NewPostgresStorage(pgClient), func() { _ = pgClient.Close() }
	case "file":
		fileStorage, err := storage.NewFileStorage(cfg.Storage.Dir)
		if err != nil {
			slog.Error("failed on storage.NewFileStorage", slog.String("err", err.Error()))
			panic(err)
		}
		return fileStorage, func() {}
	}

	slog.Error("unknown storage driver", slog.String("driver", cfg.Storage.Driver))
	panic("unknown storage driver " + cfg.Storage.Driver)
}

func setupFetchers(cfg *config.Config, mode model.PriceMode, store *assetStore.AssetStore) portfolioService.Fetchers {
	if mode == model.SimulatedMode {
		walker := priceFetcher.NewWalker(nil)
		simulated := priceFetcher.NewSimulatedFetcher(walker, store)
		return portfolioService.Fetchers{
			Equity: simulated,
			Crypto: simulated,
			Fund:   simulated,
			Rate:   priceFetcher.NewSimulatedRate(walker, store.State().ExchangeRate),
		}
	}

	timeout := cfg.Price.FetchTimeout
	return portfolioService.Fetchers{
		Equity: priceFetcher.NewEquityFetcher(yahooApi.New(cfg), tencentApi.New(cfg), cfg.Price.Workers, timeout),
		Crypto: priceFetcher.NewCryptoFetcher(coingeckoApi.New(cfg), timeout),
		Fund:   priceFetcher.NewFundFetcher(fundApi.New(cfg), cfg.Price.Workers, timeout),
		Rate:   priceFetcher.NewRateFetcher(exchangeRateApi.New(cfg), timeout),
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
