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

	"github.com/lysyi3m/quake-report/app/api"
	"github.com/lysyi3m/quake-report/app/cfg"
	"github.com/lysyi3m/quake-report/app/database"
	"github.com/lysyi3m/quake-report/app/feed"
	"github.com/lysyi3m/quake-report/app/logging"
	"github.com/lysyi3m/quake-report/app/metrics"
	"github.com/lysyi3m/quake-report/app/quake"
	"github.com/lysyi3m/quake-report/app/tasks"
	"golang.org/x/sync/errgroup"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	slog.SetDefault(logging.NewLogger(appCfg.LogFormat, appCfg.Debug))

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting Quake Report server", "version", appCfg.Version)

	metrics.Init()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load feed configurations: %w", err)
	}
	if _, err := configCache.EnsureDefault(appCfg.FeedURL); err != nil {
		return err
	}
	slog.Info("Feed configurations loaded", "dir", appCfg.FeedsDir, "count", configCache.GetConfigCount())

	board := feed.NewBoard()
	pipeline := quake.NewPipeline(quake.NewFetcher(appCfg.UserAgent), quake.NewDecoder())
	runRepo := database.NewRunRepository(db)

	// deliveries are applied to the board one at a time on this loop
	loop := tasks.NewLoop(64)
	scheduler := tasks.NewScheduler(configCache, board, pipeline, loop, runRepo)

	handler := api.NewHandler(configCache, board, feed.NewFilterer(), runRepo, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "workers", appCfg.WorkerCount)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server gracefully...")

		// workers may be blocked posting to the loop
		loop.Stop()
		scheduler.Stop()
		slog.Info("Background scheduler stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		slog.Info("HTTP server stopped")
		return nil
	})

	scheduler.Start()

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Quake Report server shutdown complete")
	return nil
}
