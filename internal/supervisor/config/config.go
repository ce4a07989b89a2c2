package config

import (
	"fmt"
	"time"

	"market-attention/pkg/config"
)

// Process describes one child process the supervisor keeps alive.
type Process struct {
	Name    string   `mapstructure:"name"`
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
}

// Supervisor holds restart policy settings.
type Supervisor struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Backoff      time.Duration `mapstructure:"backoff"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	Processes    []Process     `mapstructure:"processes"`
}

// Telegram holds configuration for the Telegram notifier. Alerts are off when BotToken is empty.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the supervisor.
type Config struct {
	App        config.App    `mapstructure:"app"`
	Logger     config.Logger `mapstructure:"logger"`
	API        config.API    `mapstructure:"api"`
	Supervisor Supervisor    `mapstructure:"supervisor"`
	Telegram   Telegram      `mapstructure:"telegram"`
}

// Load loads the supervisor configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	s := &c.Supervisor
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
	if s.Backoff <= 0 {
		s.Backoff = 5 * time.Second
	}
	if s.GracePeriod <= 0 {
		s.GracePeriod = 10 * time.Second
	}

	seen := make(map[string]struct{}, len(s.Processes))
	for _, p := range s.Processes {
		if p.Name == "" || p.Command == "" {
			return fmt.Errorf("supervisor process requires name and command")
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("duplicate supervisor process %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
