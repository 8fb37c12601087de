// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/romloader/internal/ui"
	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports on this machine. USB adapters show their vendor and
product IDs and serial number, which helps find the programmer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			return fmt.Errorf("list ports: %w", err)
		}
		printPorts(os.Stdout, ports)
		return nil
	},
}

func printPorts(w io.Writer, ports []*enumerator.PortDetails) {
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	fmt.Fprintln(w, ui.Title("Serial ports"))
	for _, p := range ports {
		if !p.IsUSB {
			fmt.Fprintf(w, "  %s\n", p.Name)
			continue
		}
		fmt.Fprintf(w, "  %s  USB %s:%s", p.Name, p.VID, p.PID)
		if p.SerialNumber != "" {
			fmt.Fprintf(w, "  serial %s", p.SerialNumber)
		}
		if p.Product != "" {
			fmt.Fprintf(w, "  %s", p.Product)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
