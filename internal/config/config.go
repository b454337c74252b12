package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/claude/mesoplan/internal/volume"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Planner   PlannerConfig   `yaml:"planner"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// PlannerConfig holds defaults applied when a request leaves them unset.
type PlannerConfig struct {
	DefaultStrategy  volume.Strategy `yaml:"default_strategy"`
	TotalWeeks       int             `yaml:"total_weeks"`
	AccumulationStep int             `yaml:"accumulation_step"`
	CacheSizeMB      int             `yaml:"cache_size_mb"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix MESOPLAN_ and underscore-separated paths:
//
//	MESOPLAN_SERVER_HOST, MESOPLAN_SERVER_PORT,
//	MESOPLAN_DB_HOST, MESOPLAN_DB_PORT, MESOPLAN_DB_NAME,
//	MESOPLAN_DB_USER, MESOPLAN_DB_PASSWORD, MESOPLAN_DB_SSLMODE,
//	MESOPLAN_AUTH_API_KEY, MESOPLAN_TAILSCALE_ENABLED,
//	MESOPLAN_PLANNER_STRATEGY, MESOPLAN_PLANNER_TOTAL_WEEKS
func Load(path string) (*Config, error) {
	cfg := &Config{
		Tailscale: TailscaleConfig{Hostname: "mesoplan", StateDir: "tsnet-state"},
		Planner: PlannerConfig{
			DefaultStrategy:  volume.Balanced,
			TotalWeeks:       5,
			AccumulationStep: volume.DefaultAccumulationStep,
			CacheSizeMB:      8,
		},
		Metrics: MetricsConfig{Enabled: true},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MESOPLAN_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MESOPLAN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MESOPLAN_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("MESOPLAN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("MESOPLAN_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("MESOPLAN_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("MESOPLAN_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MESOPLAN_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("MESOPLAN_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("MESOPLAN_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("MESOPLAN_PLANNER_STRATEGY"); v != "" {
		s, err := volume.ParseStrategy(v)
		if err != nil {
			return fmt.Errorf("MESOPLAN_PLANNER_STRATEGY: %w", err)
		}
		cfg.Planner.DefaultStrategy = s
	}
	if v := os.Getenv("MESOPLAN_PLANNER_TOTAL_WEEKS"); v != "" {
		if weeks, err := strconv.Atoi(v); err == nil {
			cfg.Planner.TotalWeeks = weeks
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Planner.TotalWeeks < 1 {
		return fmt.Errorf("planner.total_weeks must be at least 1")
	}
	if c.Planner.AccumulationStep < 1 {
		return fmt.Errorf("planner.accumulation_step must be at least 1")
	}
	if c.Planner.CacheSizeMB < 0 {
		return fmt.Errorf("planner.cache_size_mb must not be negative")
	}
	return nil
}
