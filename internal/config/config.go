// Package config loads harvester settings from defaults, an optional YAML
// file, a .env file and HARVESTER_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "HARVESTER"

	maxConcurrency = 20
	maxPageSize    = 100
)

// Config is the full harvester configuration.
type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	Store      StoreConfig     `mapstructure:"store"`
	Sources    FileConfig      `mapstructure:"sources"`
	Publishers FileConfig      `mapstructure:"publishers"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	Crawl      CrawlConfig     `mapstructure:"crawl"`
	Dashboard  DashboardConfig `mapstructure:"dashboard"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the article store. DSN is also read from DB_ECONODATA.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	Path       string `mapstructure:"path"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`

	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// FileConfig points at an optional YAML or JSON file.
type FileConfig struct {
	File string `mapstructure:"file"`
}

// HTTPConfig tunes the shared HTTP client. UserAgents given through the
// environment are separated by "|".
type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgents []string      `mapstructure:"-"`
}

// CrawlConfig bounds the work of one harvest. An Interval of zero means a
// single run.
type CrawlConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	ParallelSources int           `mapstructure:"parallel_sources"`
	Interval        time.Duration `mapstructure:"interval"`
}

type DashboardConfig struct {
	Addr     string `mapstructure:"addr"`
	PageSize int    `mapstructure:"page_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "bolt")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.path", "data/noticias.db")
	v.SetDefault("store.database", "Econodata")
	v.SetDefault("store.collection", "noticias")
	v.SetDefault("store.lock_timeout", "10s")
	v.SetDefault("sources.file", "")
	v.SetDefault("publishers.file", "")
	v.SetDefault("http.timeout", "20s")
	v.SetDefault("http.user_agents", []string{})
	v.SetDefault("crawl.concurrency", 10)
	v.SetDefault("crawl.parallel_sources", 1)
	v.SetDefault("crawl.interval", "0s")
	v.SetDefault("dashboard.addr", ":8080")
	v.SetDefault("dashboard.page_size", 20)
}

// Load reads the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.dsn", envPrefix+"_STORE_DSN", "DB_ECONODATA"); err != nil {
		return Config{}, fmt.Errorf("bind store.dsn: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.HTTP.UserAgents = stringList(v.Get("http.user_agents"))
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, "|")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	c.Sources.File = strings.TrimSpace(c.Sources.File)
	c.Publishers.File = strings.TrimSpace(c.Publishers.File)
	if c.Crawl.Concurrency > maxConcurrency {
		c.Crawl.Concurrency = maxConcurrency
	}
	if c.Dashboard.PageSize > maxPageSize {
		c.Dashboard.PageSize = maxPageSize
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}

	switch c.Store.Driver {
	case "bolt":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the bolt driver")
		}
	case "postgres", "mongo":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn (or DB_ECONODATA) is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver %q must be bolt, postgres or mongo", c.Store.Driver)
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be at least 1, got %d", c.Crawl.Concurrency)
	}
	if c.Crawl.ParallelSources < 1 {
		return fmt.Errorf("crawl.parallel_sources must be at least 1, got %d", c.Crawl.ParallelSources)
	}
	if c.Crawl.Interval < 0 {
		return fmt.Errorf("crawl.interval must not be negative, got %s", c.Crawl.Interval)
	}
	if c.Dashboard.PageSize < 1 {
		return fmt.Errorf("dashboard.page_size must be at least 1, got %d", c.Dashboard.PageSize)
	}
	return nil
}
