// Package config loads and validates the runtime configuration for the
// codec demo harness (cmd/codecrun). None of it is read by the CORE codec
// package directly; the harness translates it into codec.EncoderConfig
// values and a codec.Manager concurrency cap.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds the ambient settings a host process needs before it can open
// codec instances: logging, default encode parameters, and the backpressure
// thresholds from spec §4.5/§4.6.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	DefaultBitrate   int `mapstructure:"default_bitrate"`
	DefaultFramerate int `mapstructure:"default_framerate"`
	DefaultGOPSize   int `mapstructure:"default_gop_size"`

	QueueSoftLimit int `mapstructure:"queue_soft_limit"`
	QueueHardLimit int `mapstructure:"queue_hard_limit"`

	MaxInstances int `mapstructure:"max_instances"`
}

// Default returns the configuration a fresh host process starts with.
func Default() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		DefaultBitrate:   1_000_000,
		DefaultFramerate: 30,
		DefaultGOPSize:   30,
		QueueSoftLimit:   16,
		QueueHardLimit:   64,
		MaxInstances:     8,
	}
}

// Load reads configuration from cfgFile (or ./codecrun.yaml / the platform
// config dir if empty), then from BREEZECODEC_* environment variables, and
// validates the result. Fatal validation errors abort startup; warnings are
// logged and the offending fields are clamped to a safe value.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("codecrun")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("BREEZECODEC")
	for _, key := range []string{"log_level", "log_format", "log_file", "default_bitrate", "default_framerate", "default_gop_size", "queue_soft_limit", "queue_hard_limit", "max_instances"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "BreezeCodec")
	case "darwin":
		return "/Library/Application Support/BreezeCodec"
	default:
		return "/etc/breeze-codec"
	}
}
