// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/romloader/internal/logging"
	"github.com/Thermoquad/romloader/internal/ui"
	"github.com/Thermoquad/romloader/pkg/romloader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// PasswordEnvVar holds the WebSocket bridge password.
const PasswordEnvVar = "ROMLOADER_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// selectedProfile resolves --profile.
func selectedProfile() (romloader.Profile, error) {
	return romloader.ProfileByName(profileName)
}

// effectiveBaud returns --baud, or the profile rate when unset.
func effectiveBaud(p romloader.Profile) int {
	if baudRate > 0 {
		return baudRate
	}
	return p.BaudRate
}

func responseTimeout() time.Duration {
	if timeoutSecs <= 0 {
		return romloader.DefaultTimeout
	}
	return time.Duration(timeoutSecs) * time.Second
}

// OpenTransport opens either a serial or WebSocket transport based on flags
func OpenTransport(profile romloader.Profile) (romloader.Transport, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		t, err := romloader.OpenWebSocket(wsURL, romloader.WebSocketOptions{
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
			Timeout:       responseTimeout(),
		})
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		baud := effectiveBaud(profile)
		t, err := romloader.OpenSerial(portName, baud, responseTimeout())
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("Serial: %s @ %d baud", portName, baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// sessionFunc is the body of a device command. ctx is cancelled on SIGINT
// or when the user interrupts the progress bar.
type sessionFunc func(ctx context.Context, sess *romloader.Session) error

// withSession opens the transport, waits for the programmer to announce
// itself and runs fn with a progress display titled title.
func withSession(cmd *cobra.Command, title string, fn sessionFunc) error {
	profile, err := selectedProfile()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t, info, err := OpenTransport(profile)
	if err != nil {
		return err
	}

	logger := logging.GetLogger()
	logger.Info("connection opened", zap.String("transport", info), zap.String("profile", profile.Name))

	var reporter ui.Reporter
	sess := romloader.NewSession(t,
		romloader.WithProfile(profile),
		romloader.WithDeviceSize(deviceSize),
		romloader.WithTimeout(responseTimeout()),
		romloader.WithLogger(logger),
		romloader.WithProgressCallback(func(p romloader.Progress) {
			if reporter != nil {
				reporter.Update(p)
			}
		}),
	)
	defer sess.Close()

	fmt.Fprintf(os.Stderr, "Connected to %s\n", info)
	fmt.Fprint(os.Stderr, "Waiting programmer to reset...")
	if err := sess.WaitReady(ctx); err != nil {
		fmt.Fprintln(os.Stderr)
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted before the programmer was ready: %w", err)
		}
		return err
	}
	fmt.Fprintln(os.Stderr, " Ready!")

	reporter = ui.NewReporter(os.Stdout, !noProgress, title, cancel)
	err = fn(ctx, sess)
	reporter.Finish(err)
	reporter = nil

	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Failure("Aborting."))
		return err
	}
	return nil
}
