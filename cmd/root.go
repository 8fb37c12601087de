// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/Thermoquad/romloader/internal/config"
	"github.com/Thermoquad/romloader/internal/logging"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Device flags
	deviceSize  uint32
	dataFile    string
	timeoutSecs int
	profileName string

	// Output flags
	logLevel   string
	configPath string
	noProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "romloader",
	Short: "FLASH EEPROM programmer host",
	Long: `romloader - Upload, read and verify ROM images through the AVR FLASH EEPROM programmer.

Payload files are hex ASCII: every pair of hex digits is one byte and all other
characters (line breaks, spaces, comments) are ignored.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Protocol profiles:
  standard  115200 baud, erase progress, ident and reset (default)
  legacy    9600 baud, erase, write and read only

Defaults may be stored in a YAML config file (see "romloader config").
For WebSocket authentication, the password is read from the ROMLOADER_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "/dev/ttyACM0", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (default: profile baud rate)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().Uint32VarP(&deviceSize, "size", "s", romloader.DefaultDeviceSize, "Device size in bytes (262144, 131072, 32768)")
	rootCmd.PersistentFlags().StringVarP(&dataFile, "file", "f", "hexData.txt", "Hex ASCII payload or dump file")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", int(romloader.DefaultTimeout/time.Second), "Response timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", romloader.ProfileStandard.Name, "Protocol profile (standard, legacy)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Print progress as plain lines")
}

// loadSettings fills flags the user did not set from the config file and
// initializes logging.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyConfig(cmd, cfg)

	return logging.Initialize(logLevel)
}

func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if cfg.Port != "" && !flags.Changed("port") {
		portName = cfg.Port
	}
	if cfg.Baud != 0 && !flags.Changed("baud") {
		baudRate = cfg.Baud
	}
	if cfg.URL != "" && !flags.Changed("url") {
		wsURL = cfg.URL
	}
	if cfg.Username != "" && !flags.Changed("username") {
		wsUsername = cfg.Username
	}
	if cfg.Size != 0 && !flags.Changed("size") {
		deviceSize = cfg.Size
	}
	if cfg.File != "" && !flags.Changed("file") {
		dataFile = cfg.File
	}
	if cfg.Timeout != 0 && !flags.Changed("timeout") {
		timeoutSecs = cfg.Timeout
	}
	if cfg.Profile != "" && !flags.Changed("profile") {
		profileName = cfg.Profile
	}
	if cfg.LogLevel != "" && !flags.Changed("log-level") {
		logLevel = cfg.LogLevel
	}
}

// Execute runs the root command
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}
