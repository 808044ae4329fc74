package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the copilot engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LLM       LLMConfig       `yaml:"llm"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Memory    MemoryConfig    `yaml:"memory"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the metrics listener and shutdown behaviour.
type ServerConfig struct {
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// TelemetryConfig configures the telemetry vendor client.
type TelemetryConfig struct {
	Mode    string        `yaml:"mode"` // mock or live
	Site    string        `yaml:"site"`
	APIKey  string        `yaml:"apiKey"`
	AppKey  string        `yaml:"appKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig configures the text-generation provider.
type LLMConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseURL"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ForecastConfig configures the forecasting model endpoint.
type ForecastConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Horizon  int           `yaml:"horizon"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MemoryConfig configures the optional durable session mirror and the
// durable pattern store, both Redis-backed.
type MemoryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	KeyPrefix   string        `yaml:"keyPrefix"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	SessionTTL  time.Duration `yaml:"sessionTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AIDOG_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Mode:    "mock",
			Site:    "datadoghq.com",
			Timeout: 15 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.minimax.io/v1",
			Model:       "MiniMax-M2.5-highspeed",
			Temperature: 0.3,
			MaxTokens:   2000,
			Timeout:     60 * time.Second,
		},
		Forecast: ForecastConfig{
			Horizon: 60,
			Timeout: 30 * time.Second,
		},
		Memory: MemoryConfig{
			Enabled:     false,
			KeyPrefix:   "aidog:session",
			DialTimeout: 2 * time.Second,
			SessionTTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIDOG_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("AIDOG_TELEMETRY_MODE"); v != "" {
		cfg.Telemetry.Mode = v
	}
	if v := os.Getenv("AIDOG_TELEMETRY_SITE"); v != "" {
		cfg.Telemetry.Site = v
	}
	if v := os.Getenv("AIDOG_TELEMETRY_API_KEY"); v != "" {
		cfg.Telemetry.APIKey = v
	}
	if v := os.Getenv("AIDOG_TELEMETRY_APP_KEY"); v != "" {
		cfg.Telemetry.AppKey = v
	}
	if v := os.Getenv("AIDOG_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AIDOG_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AIDOG_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AIDOG_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(f)
		}
	}
	if v := os.Getenv("AIDOG_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("AIDOG_FORECAST_ENDPOINT"); v != "" {
		cfg.Forecast.Endpoint = v
	}
	if v := os.Getenv("AIDOG_FORECAST_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Forecast.Horizon = n
		}
	}
	if v := os.Getenv("AIDOG_MEMORY_ENABLED"); v != "" {
		cfg.Memory.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("AIDOG_MEMORY_ADDR"); v != "" {
		cfg.Memory.Addr = v
	}
	if v := os.Getenv("AIDOG_MEMORY_PASSWORD"); v != "" {
		cfg.Memory.Password = v
	}
	if v := os.Getenv("AIDOG_MEMORY_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Memory.DB = db
		}
	}
	if v := os.Getenv("AIDOG_MEMORY_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Memory.SessionTTL = d
		}
	}
	if v := os.Getenv("AIDOG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AIDOG_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
