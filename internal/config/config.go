package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL          string  `yaml:"base_url"`
		TimeoutSeconds   int     `yaml:"timeout_seconds"`
		RatePerSecond    float64 `yaml:"rate_per_second"`
		RateBurst        int     `yaml:"rate_burst"`
		CacheTTLSeconds  int     `yaml:"cache_ttl_seconds"`
		CacheEnabled     bool    `yaml:"cache_enabled"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Auth struct {
		CheckIntervalSeconds  int `yaml:"check_interval_seconds"`
		RenewThresholdSeconds int `yaml:"renew_threshold_seconds"`
		ExpiryBufferSeconds   int `yaml:"expiry_buffer_seconds"`
	} `yaml:"auth"`

	Session struct {
		StateDir string `yaml:"state_dir"`
	} `yaml:"session"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.Session.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Session.StateDir = filepath.Join(home, ".homescout")
	}
	if err = os.MkdirAll(cfg.Session.StateDir, 0o700); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) AuthCheckInterval() time.Duration {
	if c.Auth.CheckIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Auth.CheckIntervalSeconds) * time.Second
}

func (c *Config) AuthRenewThreshold() time.Duration {
	if c.Auth.RenewThresholdSeconds <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(c.Auth.RenewThresholdSeconds) * time.Second
}

func (c *Config) AuthExpiryBuffer() time.Duration {
	if c.Auth.ExpiryBufferSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Auth.ExpiryBufferSeconds) * time.Second
}
