package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"epochwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	Logging logging.Config `mapstructure:"logging"`
	Scanner ScannerConfig  `mapstructure:"scanner"`
	Refresh RefreshConfig  `mapstructure:"refresh"`
	Chart   ChartConfig    `mapstructure:"chart"`
	Server  ServerConfig   `mapstructure:"server"`
	Export  ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ScannerConfig covers access to the external scan process.
type ScannerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	StatusPath     string        `mapstructure:"status_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// RefreshConfig governs the local snapshot refresh cadence.
type RefreshConfig struct {
	MinInterval  time.Duration `mapstructure:"min_interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// ChartConfig sets the logical chart geometry.
type ChartConfig struct {
	Width             float64   `mapstructure:"width"`
	Height            float64   `mapstructure:"height"`
	TrailingOpacities []float64 `mapstructure:"trailing_opacities"`
}

// ServerConfig covers the HTTP API.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EPOCHWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "epochwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scanner.status_path", "/status.json")
	v.SetDefault("scanner.request_timeout", "10s")
	v.SetDefault("scanner.user_agent", "epochwatch/1.0")

	v.SetDefault("refresh.min_interval", "30s")
	v.SetDefault("refresh.startup_delay", "0s")

	v.SetDefault("chart.width", 720.0)
	v.SetDefault("chart.height", 220.0)
	v.SetDefault("chart.trailing_opacities", []float64{0.45, 0.24})

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Refresh.MinInterval <= 0 {
		return fmt.Errorf("refresh.min_interval must be greater than zero")
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart.width and chart.height must be greater than zero")
	}
	prev := 1.0
	for _, o := range c.Chart.TrailingOpacities {
		if o <= 0 || o >= 1 {
			return fmt.Errorf("chart.trailing_opacities must lie strictly between 0 and 1")
		}
		if o >= prev {
			return fmt.Errorf("chart.trailing_opacities must strictly decrease with age")
		}
		prev = o
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
