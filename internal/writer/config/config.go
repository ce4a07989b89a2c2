package config

import (
	"time"

	"market-attention/pkg/common"
	"market-attention/pkg/config"
)

// Writer holds stream consumption settings.
type Writer struct {
	Consumer        string        `mapstructure:"consumer"`
	BatchSize       int64         `mapstructure:"batch_size"`
	BlockTimeout    time.Duration `mapstructure:"block_timeout"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	MaxIdleDuration time.Duration `mapstructure:"max_idle_duration"`
	DeleteAcked     bool          `mapstructure:"delete_acked"`
}

// S3 holds the optional snapshot mirror destination.
type S3 struct {
	Enabled  bool          `mapstructure:"enabled"`
	Bucket   string        `mapstructure:"bucket"`
	Prefix   string        `mapstructure:"prefix"`
	Region   string        `mapstructure:"region"`
	Endpoint string        `mapstructure:"endpoint"`
	Interval time.Duration `mapstructure:"interval"`
}

// Snapshot holds exporter settings.
type Snapshot struct {
	Dir      string        `mapstructure:"dir"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
	S3       S3            `mapstructure:"s3"`
}

// Config holds the full configuration for the writer service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	Writer   Writer          `mapstructure:"writer"`
	Snapshot Snapshot        `mapstructure:"snapshot"`
}

// Load loads the writer configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	w := &c.Writer
	if w.Consumer == "" {
		w.Consumer = common.RedisStreamConsumer
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.BlockTimeout <= 0 {
		w.BlockTimeout = time.Second
	}
	if w.HandlerTimeout <= 0 {
		w.HandlerTimeout = 30 * time.Second
	}
	if w.RetryBackoff <= 0 {
		w.RetryBackoff = time.Second
	}
	if w.RetryInterval <= 0 {
		w.RetryInterval = 30 * time.Second
	}
	if w.MaxIdleDuration <= 0 {
		w.MaxIdleDuration = time.Minute
	}

	s := &c.Snapshot
	if s.Dir == "" {
		s.Dir = "data/snapshots"
	}
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.S3.Interval <= 0 {
		s.S3.Interval = time.Minute
	}
}
