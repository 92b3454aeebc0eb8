package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"file-reaper/internal/api"
	"file-reaper/internal/config"
	"file-reaper/internal/database"
	"file-reaper/internal/exitcodes"
	"file-reaper/internal/limiter"
	"file-reaper/internal/logging"
	"file-reaper/internal/metrics"
	"file-reaper/internal/reaper"
	"file-reaper/internal/scheduler"
)

const (
	pruneInterval       = 24 * time.Hour
	healthCheckInterval = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
	limiterIdleTTL      = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "/etc/file-reaper/config.yaml", "Path to configuration file")
	delay := flag.Float64("delay", -1, "Delay in seconds before deleting (default: config default_delay_seconds)")
	once := flag.Bool("once", false, "Delete the given paths, wait for completion and exit")
	flag.Parse()

	bootLog := logging.New()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		bootLog.Error().Err(err).Str("config", *configPath).Msg("failed to load config")
		return exitcodes.InvalidConfig
	}

	logger, closer := logging.NewWithConfig(&cfg.Logging)
	defer closer.Close()

	delaySeconds := cfg.DefaultDelaySeconds
	if *delay >= 0 {
		delaySeconds = *delay
	}
	paths := flag.Args()

	if *once && len(paths) == 0 {
		logger.Error().Msg("-once requires at least one path")
		return exitcodes.InvalidConfig
	}

	metrics.Init()

	var db *database.DeletionDB
	if cfg.HistoryEnabled() {
		db, err = database.NewDeletionDB(*cfg.DatabasePath)
		if err != nil {
			logger.Error().Err(err).Str("path", *cfg.DatabasePath).Msg("failed to open history database")
			return exitcodes.RuntimeError
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close history database")
			}
		}()
		logger.Info().Str("path", *cfg.DatabasePath).Msg("deletion history enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []reaper.Option{reaper.WithLogger(logging.NewKV(logger))}
	if db != nil {
		opts = append(opts, reaper.WithRecorder(db))
	}
	svc := reaper.New(ctx, opts...)
	defer svc.Close()

	if *once {
		schedule(svc, paths, delaySeconds)
		// A signal cancels ctx, which abandons pending delays and releases Wait.
		svc.Wait()
		if ctx.Err() != nil {
			logger.Warn().Msg("interrupted, pending deletions dropped")
		}
		return exitcodes.Success
	}

	return daemon(ctx, cfg, logger, svc, db, paths, delaySeconds)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func schedule(svc *reaper.Service, paths []string, delaySeconds float64) {
	switch {
	case len(paths) > 1:
		svc.DeleteMultipleWithDelay(paths, delaySeconds)
	case len(paths) == 1 && delaySeconds > 0:
		svc.DeleteWithDelay(paths[0], delaySeconds)
	case len(paths) == 1:
		svc.DeleteImmediately(paths[0])
	}
}

func daemon(ctx context.Context, cfg *config.Config, logger zerolog.Logger, svc *reaper.Service, db *database.DeletionDB, paths []string, delaySeconds float64) int {
	logger.Info().Msg("file-reaper daemon starting")

	hc := metrics.NewHealthChecker(healthCheckInterval)
	if db != nil {
		hc.RegisterComponent("database", db.Ping, 5*time.Second)
	}
	metrics.SetHealthChecker(hc)
	hc.Start()

	if !cfg.Prometheus.Disabled {
		lim := limiter.NewClientLimiter(cfg.API.RateLimit, cfg.API.Burst, limiterIdleTTL)
		defer lim.Stop()

		opts := api.Options{
			Reaper:       svc,
			Limiter:      lim,
			MaxBodyBytes: cfg.API.MaxBodyBytes,
			Logger:       logger,
		}
		if db != nil {
			opts.History = db
		}
		metrics.StartServer(cfg.PrometheusAddress(), metrics.Handler(api.NewRouter(opts)), logger)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		metrics.Shutdown(shutdownCtx, logger)
	}()

	if db != nil {
		go func() {
			_ = scheduler.Every(ctx, pruneInterval, func(context.Context) {
				pruneHistory(db, cfg.HistoryRetentionDays, logger)
			})
		}()
	}

	schedule(svc, paths, delaySeconds)

	<-ctx.Done()

	if n := svc.Pending(); n > 0 {
		logger.Warn().Int64("pending", n).Msg("shutting down, pending deletions dropped")
	}
	logger.Info().Msg("file-reaper daemon stopped")
	return exitcodes.Success
}

func pruneHistory(db *database.DeletionDB, retentionDays int, logger zerolog.Logger) {
	removed, err := db.PruneOlderThan(retentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("failed to prune deletion history")
		metrics.RecordError()
		return
	}
	if removed > 0 {
		metrics.HistoryPrunedTotal.Add(float64(removed))
		logger.Info().Int64("removed", removed).Int("retention_days", retentionDays).Msg("pruned deletion history")
	}
}
