// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/romloader/internal/ui"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
)

var identCmd = &cobra.Command{
	Use:   "ident",
	Short: "Print the manufacturer and chip identification codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Identifying", func(ctx context.Context, sess *romloader.Session) error {
			id, err := sess.Identify()
			if err != nil {
				return err
			}
			printIdentity(id)
			return nil
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Write 0x01 to address 1, read it back and identify the chip",
	Long: `Run the programmer self test. Address 1 is overwritten with 0x01.

The values are printed for inspection; the command does not judge them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Self test", func(ctx context.Context, sess *romloader.Session) error {
			res, err := sess.SelfTest()
			if err != nil {
				return err
			}
			fmt.Printf("Wrote 0x01 to address 0x01 and data in that address is 0x%02x\n", res.Echo)
			fmt.Printf("Data read from address 0x01 is 0x%02x\n", res.ReadBack)
			printIdentity(res.Identity)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the chip",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, "Resetting", func(ctx context.Context, sess *romloader.Session) error {
			if err := sess.Reset(); err != nil {
				return err
			}
			fmt.Println(ui.Success("Chip reset OK."))
			return nil
		})
	},
}

func printIdentity(id romloader.Identity) {
	fmt.Printf("Manufacturer identification code is 0x%02x\n", id.Manufacturer)
	fmt.Printf("Chip identification code is 0x%02x\n", id.Chip)
}

func init() {
	rootCmd.AddCommand(identCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(resetCmd)
}
