package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"feedvault/internal/config"
	"feedvault/internal/ingest"
	"feedvault/internal/loop"
	"feedvault/internal/metrics"
	"feedvault/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "feedvault",
	Short: "feedvault - a per-feed article archive",
	Long: `feedvault keeps every article seen in a syndication feed, deduplicated by guid,
with read state, retention limits and filter rules.

Example usage:
  feedvault serve                                    # HTTP API, queue worker and deferred commits
  feedvault import https://example.org/rss feed.xml  # ingest a downloaded feed document
  feedvault query https://example.org/rss --status unread`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/feedvault/config.yaml)")
	flags.String("backend", config.BackendBadger, "archive backend: badger or memory")
	flags.String("archive-path", config.DefaultArchivePath(), "Path to the Badger archive directory")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("redis-addr", "localhost:6379", "Address of Redis server")
	flags.String("http-addr", ":8080", "HTTP API listen address")

	_ = v.BindPFlag("backend", flags.Lookup("backend"))
	_ = v.BindPFlag("archive_path", flags.Lookup("archive-path"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("redis_addr", flags.Lookup("redis-addr"))
	_ = v.BindPFlag("http_addr", flags.Lookup("http-addr"))
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

// app is the archive wiring shared by every command. All archive access goes
// through loop, including the deferred commit.
type app struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	loop     *loop.Loop
	archive  *store.Archive
	ingestor *ingest.Ingestor

	stopLoop context.CancelFunc
}

func newApp() (*app, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	a := &app{
		registry: reg,
		metrics:  metrics.New(reg),
		loop:     loop.New(),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	a.stopLoop = cancel
	go a.loop.Run(loopCtx)

	a.archive, err = a.openArchive()
	if err != nil {
		cancel()
		return nil, err
	}
	a.ingestor = ingest.New(a.archive,
		ingest.WithLogger(logger),
		ingest.WithMetrics(a.metrics),
		ingest.WithPolicies(cfg.Policies()),
		ingest.WithRules(rules),
	)
	return a, nil
}

// openArchive falls back to an in-memory archive when Badger cannot be opened.
func (a *app) openArchive() (*store.Archive, error) {
	opts := []store.Option{
		store.WithLogger(logger),
		store.WithMetrics(a.metrics),
		store.WithCommitDelay(cfg.CommitDelay),
		store.WithDispatcher(a.loop.Post),
	}
	ctx := context.Background()

	if cfg.Backend == config.BackendBadger {
		archive := store.NewBadger(store.BadgerConfig{Path: cfg.ArchivePath}, opts...)
		err := a.loop.Do(ctx, func() error { return archive.Open(cfg.AutoCommit) })
		if err == nil {
			return archive, nil
		}
		logger.Warn("Badger archive unavailable, using memory backend",
			zap.String("path", cfg.ArchivePath), zap.Error(err))
	}

	archive := store.NewMemory(opts...)
	if err := a.loop.Do(ctx, func() error { return archive.Open(cfg.AutoCommit) }); err != nil {
		return nil, err
	}
	return archive, nil
}

// do runs fn on the archive goroutine.
func (a *app) do(fn func() error) error {
	return a.loop.Do(context.Background(), fn)
}

func (a *app) close() error {
	err := a.do(a.archive.Close)
	a.stopLoop()
	<-a.loop.Done()
	return err
}

// openInput returns stdin for "-".
func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()

	rootCmd.AddCommand(serveCmd, importCmd, enqueueCmd, feedsCmd, queryCmd, markCmd, expireCmd, feedlistCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
