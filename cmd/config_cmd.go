// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/romloader/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective settings and config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		fmt.Printf("Config file: %s\n\n", path)
		printSettings(os.Stdout, currentSettings())
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store the effective settings in the config file",
	Long: `Write the current settings, after flags and the existing file are merged,
to the config file. Pass the flags to pin, for example:

  romloader config save --port /dev/ttyUSB0 --profile legacy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		if err := config.Save(path, currentSettings()); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	},
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// currentSettings captures the merged flag values.
func currentSettings() *config.Config {
	return &config.Config{
		Port:     portName,
		Baud:     baudRate,
		URL:      wsURL,
		Username: wsUsername,
		Size:     deviceSize,
		File:     dataFile,
		Timeout:  timeoutSecs,
		Profile:  profileName,
		LogLevel: logLevel,
	}
}

func printSettings(w io.Writer, cfg *config.Config) {
	baud := "profile default"
	if cfg.Baud > 0 {
		baud = fmt.Sprintf("%d", cfg.Baud)
	}
	fmt.Fprintf(w, "  port:      %s\n", cfg.Port)
	fmt.Fprintf(w, "  baud:      %s\n", baud)
	if cfg.URL != "" {
		fmt.Fprintf(w, "  url:       %s\n", cfg.URL)
		fmt.Fprintf(w, "  username:  %s\n", cfg.Username)
	}
	fmt.Fprintf(w, "  size:      %d\n", cfg.Size)
	fmt.Fprintf(w, "  file:      %s\n", cfg.File)
	fmt.Fprintf(w, "  timeout:   %ds\n", cfg.Timeout)
	fmt.Fprintf(w, "  profile:   %s\n", cfg.Profile)
	if cfg.LogLevel != "" {
		fmt.Fprintf(w, "  log level: %s\n", cfg.LogLevel)
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSaveCmd)
}
