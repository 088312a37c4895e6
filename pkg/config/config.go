package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/Harry166/stro/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		ClientRPS       float64       `yaml:"client_rps" default:"2"`
		ClientBurst     int           `yaml:"client_burst" default:"10"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cache struct {
		Backend    string `yaml:"backend" default:"file"` // file | redis
		Dir        string `yaml:"dir" default:"cache"`
		MaxEntries int    `yaml:"max_entries" default:"5000"`
		KeyPrefix  string `yaml:"key_prefix" default:"stro:cache:"`
	} `yaml:"cache"`
	RateLimit struct {
		Window time.Duration `yaml:"window" default:"12h"`
		Budget int           `yaml:"budget" default:"45"`
	} `yaml:"ratelimit"`
	Engine struct {
		Symbols          []string      `yaml:"symbols"`
		ProviderTimeout  time.Duration `yaml:"provider_timeout" default:"10s"`
		NewsFresh        time.Duration `yaml:"news_fresh" default:"120m"`
		NewsStale        time.Duration `yaml:"news_stale" default:"720m"`
		MarketNewsFresh  time.Duration `yaml:"market_news_fresh" default:"60m"`
		NewsLookback     time.Duration `yaml:"news_lookback" default:"168h"`
		BatchSize        int           `yaml:"batch_size" default:"5"`
		BatchPause       time.Duration `yaml:"batch_pause" default:"2s"`
		TrendingMin      float64       `yaml:"trending_min" default:"0.6"`
		TopN             int           `yaml:"top_n" default:"10"`
		AlertGainPct     float64       `yaml:"alert_gain_pct" default:"25"`
		AlertLossPct     float64       `yaml:"alert_loss_pct" default:"-15"`
		AlertDedupWindow time.Duration `yaml:"alert_dedup_window" default:"24h"`
	} `yaml:"engine"`
	Scheduler struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		RefreshEvery    time.Duration `yaml:"refresh_every" default:"1h"`
		SweepEvery      time.Duration `yaml:"sweep_every" default:"30m"`
		CacheSweepEvery time.Duration `yaml:"cache_sweep_every" default:"6h"`
		JobTimeout      time.Duration `yaml:"job_timeout" default:"20m"`
	} `yaml:"scheduler"`
	News struct {
		Provider string `yaml:"provider" default:"newsapi"` // newsapi | rss
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url" default:"https://newsapi.org/v2"`
		RSSURL   string `yaml:"rss_url" default:"https://news.google.com/rss/search"`
	} `yaml:"news"`
	Classifier struct {
		URL string `yaml:"url"` // empty selects the built-in lexicon classifier
	} `yaml:"classifier"`
	Finnhub struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url" default:"https://finnhub.io/api/v1"`
	} `yaml:"finnhub"`
	Storage struct {
		Driver string `yaml:"driver" default:"sqlite"` // sqlite | postgres
		DSN    string `yaml:"dsn" default:"stro.db"`
	} `yaml:"storage"`
	Alerts struct {
		Backend string `yaml:"backend" default:"sql"` // sql | clickhouse
	} `yaml:"alerts"`
	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"stro"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		AlertsTopic  string   `yaml:"alerts_topic" default:"stro.alerts"`
		RankingTopic string   `yaml:"ranking_topic" default:"stro.rankings"`
		LogsTopic    string   `yaml:"logs_topic" default:"stro.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"stro-notifier"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"stro.alerts.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Enabled     bool          `yaml:"enabled"`
		Name        string        `yaml:"name" default:"stro:jobs"`
		Workers     int           `yaml:"workers" default:"2"`
		MaxRetries  int           `yaml:"max_retries" default:"3"`
		PollTimeout time.Duration `yaml:"poll_timeout" default:"2s"`
	} `yaml:"queue"`
}

// DefaultSymbols is the tracked universe when none is configured.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "JPM", "V", "JNJ",
	"WMT", "PG", "UNH", "HD", "DIS", "PYPL", "NFLX", "ADBE", "CRM", "PFE",
}

// Default returns a config populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.Engine.Symbols = append([]string(nil), DefaultSymbols...)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Engine.Symbols) == 0 {
		c.Engine.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("CLASSIFIER_URL"); v != "" {
		c.Classifier.URL = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Engine.Symbols = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'file' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.Cache.Backend == "file" && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required for the file backend")
	}
	if c.RateLimit.Budget <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.budget and ratelimit.window must be positive")
	}
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive")
	}
	if c.Engine.BatchPause < 0 {
		return fmt.Errorf("engine.batch_pause cannot be negative")
	}
	if c.Engine.ProviderTimeout <= 0 {
		return fmt.Errorf("engine.provider_timeout must be positive")
	}
	if c.Engine.NewsStale < c.Engine.NewsFresh {
		return fmt.Errorf("engine.news_stale must not be shorter than engine.news_fresh")
	}
	if c.Engine.AlertLossPct >= 0 || c.Engine.AlertGainPct <= 0 {
		return fmt.Errorf("engine alert thresholds must be gain > 0 and loss < 0")
	}
	if c.News.Provider != "newsapi" && c.News.Provider != "rss" {
		return fmt.Errorf("news.provider must be 'newsapi' or 'rss', got '%s'", c.News.Provider)
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("storage.driver must be 'sqlite' or 'postgres', got '%s'", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Alerts.Backend != "sql" && c.Alerts.Backend != "clickhouse" {
		return fmt.Errorf("alerts.backend must be 'sql' or 'clickhouse', got '%s'", c.Alerts.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
