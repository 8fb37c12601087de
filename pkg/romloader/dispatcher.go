// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher sends one command at a time and waits for its response.
// It is not safe for concurrent use; Session serializes access.
type Dispatcher struct {
	transport Transport
	reader    *FrameReader
	profile   Profile
	logger    *zap.Logger
}

// NewDispatcher creates a Dispatcher on t. A nil logger disables logging.
func NewDispatcher(t Transport, profile Profile, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		transport: t,
		reader:    NewFrameReader(t),
		profile:   profile,
		logger:    logger,
	}
}

// Send writes cmd and returns the response payload. onProgress receives one
// call per progress marker; pass nil when the command emits none.
func (d *Dispatcher) Send(cmd Command, onProgress func()) ([]byte, error) {
	if !d.profile.Supports(cmd.Verb) {
		return nil, &UnsupportedError{Verb: cmd.Verb, Profile: d.profile.Name}
	}
	if !d.profile.ProgressMarkers {
		onProgress = nil
	}

	line := cmd.Bytes()
	if _, err := d.transport.Write(line); err != nil {
		return nil, fmt.Errorf("write %q: %w", cmd.String(), err)
	}

	payload, err := d.reader.ReadUntil("", onProgress)
	if err != nil {
		var timeout *ProtocolTimeout
		if errors.As(err, &timeout) {
			timeout.Command = cmd.String()
		}
		d.logger.Debug("command failed",
			zap.String("command", cmd.String()),
			zap.Error(err),
		)
		return nil, err
	}

	d.logger.Debug("command",
		zap.String("command", cmd.String()),
		zap.String("payload", hex.EncodeToString(payload)),
	)
	return payload, nil
}

// SendByte sends cmd and requires a single raw byte in response.
func (d *Dispatcher) SendByte(cmd Command) (byte, error) {
	payload, err := d.Send(cmd, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) != 1 {
		return 0, &ResponseError{Command: cmd.String(), Payload: payload}
	}
	return payload[0], nil
}

// WaitFor blocks until the device sends expect followed by CRLF and returns
// everything received before the CRLF.
func (d *Dispatcher) WaitFor(expect string, onProgress func()) ([]byte, error) {
	return d.reader.ReadUntil(expect, onProgress)
}
