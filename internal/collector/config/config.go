package config

import (
	"fmt"
	"time"

	"market-attention/pkg/config"
)

// Source kinds understood by the collector.
const (
	KindBinance      = "binance"
	KindAlpaca       = "alpaca"
	KindFirehose     = "firehose"
	KindGDELT        = "gdelt"
	KindRSS          = "rss"
	KindSocialSearch = "socialsearch"
)

var defaultURLs = map[string]string{
	KindBinance:      "wss://stream.binance.com:9443/stream",
	KindAlpaca:       "wss://stream.data.alpaca.markets/v2/iex",
	KindFirehose:     "wss://jetstream2.us-east.bsky.network/subscribe?wantedCollections=app.bsky.feed.post",
	KindGDELT:        "https://api.gdeltproject.org/api/v2/doc/doc",
	KindSocialSearch: "https://api.twitter.com/2/tweets/search/recent",
}

// Source holds the settings of one source adapter. Only the fields relevant to Kind are read.
type Source struct {
	Kind string `mapstructure:"kind"`
	URL  string `mapstructure:"url"`

	// Streaming
	Symbols        []string      `mapstructure:"symbols"`
	QuoteSuffix    string        `mapstructure:"quote_suffix"`
	KeyID          string        `mapstructure:"key_id"`
	SecretKey      string        `mapstructure:"secret_key"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`

	// Polling
	Schedule            string        `mapstructure:"schedule"`
	Feeds               []string      `mapstructure:"feeds"`
	BearerToken         string        `mapstructure:"bearer_token"`
	PageSize            int           `mapstructure:"page_size"`
	MaxPages            int           `mapstructure:"max_pages"`
	Lookback            time.Duration `mapstructure:"lookback"`
	MinFollowers        int           `mapstructure:"min_followers"`
	FetchBody           bool          `mapstructure:"fetch_body"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

// Collector holds collector-wide configuration.
type Collector struct {
	KeywordsFile string            `mapstructure:"keywords_file"`
	SeenTTL      time.Duration     `mapstructure:"seen_ttl"`
	Sources      map[string]Source `mapstructure:"sources"`
}

// Config holds the full configuration for a collector process.
type Config struct {
	App       config.App    `mapstructure:"app"`
	Logger    config.Logger `mapstructure:"logger"`
	Redis     config.Redis  `mapstructure:"redis"`
	Collector Collector     `mapstructure:"collector"`
}

// Load loads the collector configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Collector.SeenTTL <= 0 {
		cfg.Collector.SeenTTL = 24 * time.Hour
	}
	return &cfg, nil
}

// Source returns the named source with defaults applied.
func (c *Config) Source(name string) (Source, error) {
	src, ok := c.Collector.Sources[name]
	if !ok {
		return Source{}, fmt.Errorf("source %q is not configured", name)
	}
	if src.Kind == "" {
		src.Kind = name
	}
	src.applyDefaults()
	return src, nil
}

func (s *Source) applyDefaults() {
	if s.URL == "" {
		s.URL = defaultURLs[s.Kind]
	}
	if s.ReconnectDelay <= 0 {
		s.ReconnectDelay = 5 * time.Second
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 2 * time.Minute
	}
	if s.Schedule == "" {
		s.Schedule = "@every 15m"
	}
	if s.PageSize <= 0 {
		s.PageSize = 100
	}
	if s.MaxPages <= 0 {
		s.MaxPages = 10
	}
	if s.Lookback <= 0 {
		s.Lookback = 15 * time.Minute
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 15 * time.Second
	}
	if s.Kind == KindBinance && s.QuoteSuffix == "" {
		s.QuoteSuffix = "USDT"
	}
}
