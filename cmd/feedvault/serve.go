package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedvault/internal/cache"
	"feedvault/internal/queue"
	web "feedvault/internal/server"
	"feedvault/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the ingestion worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				logger.Error("Failed to close archive", zap.Error(err))
			}
		}()

		var evicted int
		if err := a.do(func() error { evicted = a.ingestor.ExpireAll(); return nil }); err != nil {
			return err
		}
		logger.Info("Startup expiry complete", zap.Int("evicted", evicted))

		queryCache := cache.NewManager(cfg.CacheTTL)
		srv := web.NewServer(a.archive, a.ingestor, a.loop, queryCache, a.registry, logger)

		g, gctx := errgroup.WithContext(ctx)

		q, err := queue.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("Queue unavailable, worker disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer q.Close()
			w := worker.NewWorker(q, a.loop, a.ingestor, logger, a.metrics)
			w.OnJobDone(queryCache.Invalidate)
			g.Go(func() error { return w.Start(gctx) })
		}

		g.Go(func() error {
			a.archive.RunGC(gctx, cfg.GCInterval)
			return nil
		})
		g.Go(func() error {
			return srv.Start(cfg.HTTPAddr)
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		})

		err = g.Wait()
		logger.Info("Goodbye!")
		return err
	},
}
