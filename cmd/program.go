// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/romloader/internal/logging"
	"github.com/Thermoquad/romloader/internal/ui"
	"github.com/Thermoquad/romloader/pkg/hexfile"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Fill zeros, erase and write the payload file",
	Long: `Program the chip in one pass: fill every cell with 0x00, erase the whole
chip, then write the payload from --file with read-back verification.

The first failing step aborts the sequence; no further steps run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := loadPayload()
		if err != nil {
			return err
		}
		return withSession(cmd, "Programming", func(ctx context.Context, sess *romloader.Session) error {
			if err := sess.Program(ctx, deviceSize, payload); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Programmed %d bytes.", len(payload))))
			return nil
		})
	},
}

var fillZerosCmd = &cobra.Command{
	Use:   "fillzeros",
	Short: "Write 0x00 to every cell",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Filling zeros", func(ctx context.Context, sess *romloader.Session) error {
			if err := sess.FillZeros(ctx, deviceSize); err != nil {
				return err
			}
			fmt.Println(ui.Success("Fill zeros OK."))
			return nil
		})
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the whole chip",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Erasing", func(ctx context.Context, sess *romloader.Session) error {
			if err := sess.EraseChip(deviceSize); err != nil {
				return err
			}
			fmt.Println(ui.Success("Chip erase OK."))
			return nil
		})
	},
}

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the payload file with read-back verification",
	Long: `Write every byte of --file to consecutive addresses starting at 0.
Each byte is read back by the programmer; the first mismatch aborts.

The chip must already be erased.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := loadPayload()
		if err != nil {
			return err
		}
		return withSession(cmd, "Writing", func(ctx context.Context, sess *romloader.Session) error {
			if err := sess.WriteBulk(ctx, payload); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Wrote %d bytes.", len(payload))))
			return nil
		})
	},
}

// loadPayload parses --file before any device is opened.
func loadPayload() ([]byte, error) {
	payload, err := hexfile.ParseFile(dataFile)
	if err != nil {
		return nil, err
	}
	if uint32(len(payload)) > deviceSize {
		return nil, fmt.Errorf("payload of %d bytes exceeds device size %d", len(payload), deviceSize)
	}

	logging.GetLogger().Info("payload loaded",
		zap.String("file", dataFile),
		zap.Int("bytes", len(payload)),
	)
	if len(payload) > 0 {
		logging.LogRawBytes("payload head", payload[:min(len(payload), 32)])
	}
	return payload, nil
}

func init() {
	rootCmd.AddCommand(programCmd)
	rootCmd.AddCommand(fillZerosCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(writeCmd)
}
