// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Local bus flags
	i2cBus string

	// Serial bridge flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Sensor flags
	variantName   string
	bridgeAddress uint64

	// Configuration and logging flags
	configFile string
	logLevel   string
	logFormat  string
)

var (
	cfg    = DefaultConfig()
	logger = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "sen6x",
	Short: "SEN6x Environmental Sensor Tool",
	Long: `sen6x - A CLI tool for reading and configuring Sensirion SEN6x modules.

Talks to SEN60, SEN63C, SEN65, SEN66 and SEN68 modules over a local I2C bus or
through a serial or WebSocket bridge that forwards I2C transactions.

Connection modes:
  Local I2C: --i2c /dev/i2c-1
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

The variant is detected from the product name unless --variant is given.

For WebSocket authentication, the password is read from the SEN6X_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Local bus flags
	rootCmd.PersistentFlags().StringVar(&i2cBus, "i2c", "", "Local I2C bus (e.g. /dev/i2c-1)")

	// Serial bridge flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Sensor flags
	rootCmd.PersistentFlags().StringVar(&variantName, "variant", "auto", "Module variant (auto, SEN60, SEN63C, SEN65, SEN66, SEN68)")
	rootCmd.PersistentFlags().Uint64Var(&bridgeAddress, "bridge-address", 0, "Bridge device address (bridge only)")

	// Configuration and logging flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// loadSettings reads the config file, applies explicit flags over it and
// configures the logger
func loadSettings(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		loaded, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	applyFlags(cmd, cfg)
	logger = setupLogger(cfg.Log)
	return nil
}

// applyFlags copies every flag set on the command line into c
func applyFlags(cmd *cobra.Command, c *Config) {
	flags := cmd.Flags()
	if flags.Changed("i2c") {
		c.Device.I2C = i2cBus
	}
	if flags.Changed("port") {
		c.Device.Port = portName
	}
	if flags.Changed("baud") {
		c.Device.Baud = baudRate
	}
	if flags.Changed("url") {
		c.Device.URL = wsURL
	}
	if flags.Changed("username") {
		c.Device.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.Device.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("variant") {
		c.Device.Variant = variantName
	}
	if flags.Changed("bridge-address") {
		c.Device.BridgeAddress = bridgeAddress
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
