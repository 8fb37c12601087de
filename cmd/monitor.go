// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/romloader/internal/logging"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print the raw lines sent by the programmer",
	Long: `Open the connection and print every line the programmer sends, with a
timestamp, until Ctrl+C. Nothing is written to the device.

Useful to watch the "ready" banner after a reset, or to check that the
baud rate and profile match the firmware. Non-printable bytes are shown as
\xNN.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	profile, err := selectedProfile()
	if err != nil {
		return err
	}

	t, info, err := OpenTransport(profile)
	if err != nil {
		return err
	}
	defer t.Close()

	// Reads block until data arrives; closing the transport unblocks them
	if err := t.SetTimeout(0); err != nil {
		return err
	}

	fmt.Printf("romloader - Programmer Monitor\n")
	fmt.Printf("Connection: %s\n", info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readChan := make(chan byte, 256)
	errChan := make(chan error, 1)
	go func() {
		for {
			b, err := t.ReadByte()
			if err != nil {
				errChan <- err
				return
			}
			readChan <- b
		}
	}()

	var lines lineBuffer
	for {
		select {
		case b := <-readChan:
			if line, ok := lines.add(b); ok {
				logging.LogRawBytes("line", line)
				fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), formatLine(line))
			}

		case err := <-errChan:
			if errors.Is(err, romloader.ErrConnectionClosed) {
				fmt.Println("Connection closed")
				return nil
			}
			return err

		case <-ctx.Done():
			if rest := lines.flush(); len(rest) > 0 {
				fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), formatLine(rest))
			}
			return nil
		}
	}
}

// lineBuffer splits the byte stream on '\n', dropping the '\r' before it.
type lineBuffer struct {
	buf []byte
}

func (l *lineBuffer) add(b byte) ([]byte, bool) {
	if b != '\n' {
		l.buf = append(l.buf, b)
		return nil, false
	}
	line := l.flush()
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, true
}

func (l *lineBuffer) flush() []byte {
	line := l.buf
	l.buf = nil
	return line
}

// formatLine renders printable ASCII as is and everything else as \xNN.
// Responses to read and ident are single raw bytes, so both forms show up.
func formatLine(line []byte) string {
	var b strings.Builder
	for _, c := range line {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\x%02x", c)
		}
	}
	return b.String()
}
