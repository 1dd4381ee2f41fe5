package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/spf13/viper"
)

// Config is the CLI configuration, read from brickedit.yaml and
// BRICKEDIT_* environment variables.
type Config struct {
	LDDPath     string `mapstructure:"ldd_path" yaml:"ldd_path"`
	WorkDir     string `mapstructure:"work_dir" yaml:"work_dir"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	Compression int    `mapstructure:"compression" yaml:"compression"`
}

const (
	configName = "brickedit"
	envPrefix  = "BRICKEDIT"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("ldd_path", "")
	v.SetDefault("work_dir", filepath.Join(os.TempDir(), "brickedit"))
	v.SetDefault("log_level", "info")
	v.SetDefault("compression", flate.BestSpeed)
}

// LoadConfig reads configFile, or brickedit.yaml from the working and user
// config directories when configFile is empty. A missing default file is not
// an error. Environment variables override file values.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setConfigDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Compression < flate.HuffmanOnly || c.Compression > flate.BestCompression {
		return fmt.Errorf("config: compression must be between %d and %d, got %d",
			flate.HuffmanOnly, flate.BestCompression, c.Compression)
	}
	return nil
}
