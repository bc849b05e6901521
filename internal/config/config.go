// Package config loads feedvault settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feedvault/internal/ingest"
	"feedvault/internal/matcher"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

type Config struct {
	ArchivePath string           `mapstructure:"archive_path"`
	Backend     string           `mapstructure:"backend"`
	AutoCommit  bool             `mapstructure:"auto_commit"`
	CommitDelay time.Duration    `mapstructure:"commit_delay"`
	RedisAddr   string           `mapstructure:"redis_addr"`
	HTTPAddr    string           `mapstructure:"http_addr"`
	LogLevel    string           `mapstructure:"log_level"`
	CacheTTL    time.Duration    `mapstructure:"cache_ttl"`
	GCInterval  time.Duration    `mapstructure:"gc_interval"`
	Retention   ingest.Retention `mapstructure:"retention"`
	Feeds       []FeedOverride   `mapstructure:"feeds"`
	FiltersFile string           `mapstructure:"filters_file"`
}

// FeedOverride is the per-feed retention override. Feeds are a list because
// viper folds map keys, and feed URLs are case sensitive.
type FeedOverride struct {
	URL               string `mapstructure:"url"`
	ingest.FeedPolicy `mapstructure:",squash"`
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "feedvault", "config.yaml")
}

func DefaultArchivePath() string {
	return filepath.Join(xdg.DataHome, "feedvault", "archive")
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("archive_path", DefaultArchivePath())
	v.SetDefault("backend", BackendBadger)
	v.SetDefault("auto_commit", true)
	v.SetDefault("commit_delay", 3*time.Second)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl", time.Minute)
	v.SetDefault("gc_interval", 10*time.Minute)
	v.SetDefault("retention.mode", string(ingest.KeepAllArticles))
	v.SetDefault("retention.max_article_age_days", 60)
	v.SetDefault("retention.max_article_number", 1000)
	v.SetDefault("retention.do_not_expire_important", true)
	v.SetDefault("filters_file", "")
}

// Load reads cfgFile, or config.yaml from the working directory and the XDG config
// home, then applies FEEDVAULT_* environment variables and anything already bound on v.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(DefaultConfigPath()))
	}

	v.SetEnvPrefix("FEEDVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendBadger && c.ArchivePath == "" {
		return errors.New("archive_path is required for the badger backend")
	}
	if c.CommitDelay <= 0 {
		return fmt.Errorf("commit_delay must be positive, got %s", c.CommitDelay)
	}
	if !c.Retention.Mode.Valid() || c.Retention.Mode == ingest.GlobalDefault {
		return fmt.Errorf("invalid retention mode %q", c.Retention.Mode)
	}
	for _, f := range c.Feeds {
		if f.URL == "" {
			return errors.New("feed override without url")
		}
		if f.ArchiveMode != "" && !f.ArchiveMode.Valid() {
			return fmt.Errorf("feed %s: invalid archive mode %q", f.URL, f.ArchiveMode)
		}
	}
	return nil
}

// Policies assembles the retention settings for the ingestor.
func (c *Config) Policies() ingest.Policies {
	p := ingest.Policies{
		Default: c.Retention,
		Feeds:   make(map[string]ingest.FeedPolicy, len(c.Feeds)),
	}
	for _, f := range c.Feeds {
		p.Feeds[f.URL] = f.FeedPolicy
	}
	return p
}

// Rules loads the filter rules from FiltersFile. No file means no rules.
func (c *Config) Rules() ([]ingest.Rule, error) {
	if c.FiltersFile == "" {
		return nil, nil
	}
	f, err := os.Open(c.FiltersFile)
	if err != nil {
		return nil, fmt.Errorf("opening filters: %w", err)
	}
	defer f.Close()

	filters, err := matcher.LoadFilters(f)
	if err != nil {
		return nil, err
	}
	return ingest.RulesFromFilters(filters)
}
