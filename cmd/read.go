// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Thermoquad/romloader/internal/ui"
	"github.com/Thermoquad/romloader/pkg/hexfile"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Dump the chip contents to the file",
	Long: `Read addresses 0 through --size - 1 and append them to --file as hex ASCII.

The dump is appended, never truncated. If the read stops early, the bytes
received so far are still written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Reading", func(ctx context.Context, sess *romloader.Session) error {
			data, readErr := sess.ReadBulk(ctx, deviceSize)
			if len(data) > 0 {
				if err := hexfile.AppendDump(dataFile, data); err != nil {
					return fmt.Errorf("write dump: %w", err)
				}
			}
			if readErr != nil {
				fmt.Fprintf(os.Stderr, "Saved %d bytes to %s before the failure.\n", len(data), dataFile)
				return readErr
			}
			fmt.Println(ui.Success(fmt.Sprintf("Read %d bytes into %s.", len(data), dataFile)))
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every cell reads back as 0xFF",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Verifying erase", func(ctx context.Context, sess *romloader.Session) error {
			if err := sess.VerifyErase(ctx, deviceSize); err != nil {
				return err
			}
			fmt.Println(ui.Success("Chip is blank."))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(verifyCmd)
}
