// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the sen6x configuration file
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Export  ExportConfig  `yaml:"export"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// DeviceConfig selects the transport and module variant
type DeviceConfig struct {
	I2C           string        `yaml:"i2c"`
	Port          string        `yaml:"port"`
	Baud          int           `yaml:"baud"`
	URL           string        `yaml:"url"`
	Username      string        `yaml:"username"`
	NoSSLVerify   bool          `yaml:"no_ssl_verify"`
	Variant       string        `yaml:"variant"`
	BridgeAddress uint64        `yaml:"bridge_address"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ExportConfig controls the exporter polling loop
type ExportConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Channel  string `yaml:"channel"`
	History  int64  `yaml:"history"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	MetricsPort int  `yaml:"metrics_port"`
}

// LoadConfig reads a yaml file over the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// Validate rejects settings the polling loops cannot run with
func (c *Config) Validate() error {
	if err := checkInterval("export.interval", c.Export.Interval); err != nil {
		return err
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("device.timeout must be positive, got %v", c.Device.Timeout)
	}
	return nil
}

// checkInterval rejects zero and negative polling intervals
func checkInterval(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %v", name, d)
	}
	return nil
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Baud:          115200,
			Variant:       "auto",
			BridgeAddress: 0,
			Timeout:       2 * time.Second,
		},
		Export: ExportConfig{
			Interval: time.Second,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			Channel:  "sen6x_readings",
			History:  1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Monitor: MonitorConfig{
			Enabled:     true,
			MetricsPort: 9090,
		},
	}
}
