// Package config loads the host bench runner's configuration from YAML,
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jangala-dev/tinygo-uartecho/echo"
)

// ErrNoDevice is returned when no serial device is configured.
var ErrNoDevice = errors.New("serial.device is required")

// Config is the root host configuration.
type Config struct {
	Serial SerialConfig `mapstructure:"serial"`
	Log    LogConfig    `mapstructure:"log"`
}

// SerialConfig selects and parameterises the single echoed port.
type SerialConfig struct {
	// Device path, e.g. /dev/ttyUSB0 or COM3.
	Device string `mapstructure:"device"`
	// Baud in bits per second, clamped to the supported range.
	Baud uint32 `mapstructure:"baud"`
	// ReadTimeout bounds each device read so shutdown is observed.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`
	// Rotation applies to file outputs.
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Option adjusts a loaded Config before validation, e.g. from CLI flags.
type Option func(*Config)

const defaultReadTimeout = 100 * time.Millisecond

// Default returns a Config populated with defaults; Serial.Device is empty.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:        echo.DefaultBaudRate,
			ReadTimeout: defaultReadTimeout,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

// Load reads configuration from path if non-empty, else from UARTECHO_CONFIG
// or uartecho.yaml in ., ./configs or ~/.uartecho. A missing search-path
// file is not an error. Environment variables use the prefix UARTECHO with
// `.` replaced by `_`, e.g. UARTECHO_SERIAL_BAUD=57600. Options run after
// decoding, before validation.
func Load(path string, opts ...Option) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("UARTECHO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("serial.device", def.Serial.Device)
	v.SetDefault("serial.baud", def.Serial.Baud)
	v.SetDefault("serial.read_timeout", def.Serial.ReadTimeout)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.outputs", def.Log.Outputs)
	v.SetDefault("log.development", def.Log.Development)
	v.SetDefault("log.rotation.enable", def.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", def.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", def.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", def.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", def.Log.Rotation.Compress)

	if path == "" {
		path = os.Getenv("UARTECHO_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("uartecho")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".uartecho"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalises c in place and reports the first invalid field.
func (c *Config) Validate() error {
	c.Serial.Device = strings.TrimSpace(c.Serial.Device)
	if c.Serial.Device == "" {
		return ErrNoDevice
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = echo.DefaultBaudRate
	}
	c.Serial.Baud = echo.ClampBaudRate(c.Serial.Baud)
	if c.Serial.ReadTimeout <= 0 {
		c.Serial.ReadTimeout = defaultReadTimeout
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return nil
}
