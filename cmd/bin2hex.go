// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/romloader/pkg/hexfile"
	"github.com/spf13/cobra"
)

var (
	bin2hexInput  string
	bin2hexOutput string
)

var bin2hexCmd = &cobra.Command{
	Use:   "bin2hex",
	Short: "Convert a binary ASCII file to a hex ASCII payload",
	Long: `Convert a file of '0' and '1' characters into the hex ASCII payload format
read by "write" and "program". Every 8 bits become one byte, most significant
bit first. All other characters are ignored and an incomplete trailing byte
is dropped.

No device is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.Open(bin2hexInput)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.Create(bin2hexOutput)
		if err != nil {
			return err
		}
		defer out.Close()

		count, err := hexfile.ConvertBinary(in, out)
		if err != nil {
			return fmt.Errorf("convert %s: %w", bin2hexInput, err)
		}
		if err := out.Close(); err != nil {
			return err
		}

		fmt.Printf("Processing of %d bytes complete.\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bin2hexCmd)
	bin2hexCmd.Flags().StringVarP(&bin2hexInput, "input", "i", "binData.txt", "Binary ASCII input file")
	bin2hexCmd.Flags().StringVarP(&bin2hexOutput, "output", "o", "hexData.txt", "Hex ASCII output file")
}
