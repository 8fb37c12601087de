// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ErasedValue is the content of a flash cell after erase.
const ErasedValue = 0xFF

// Identity holds the two JEDEC identification bytes.
type Identity struct {
	Manufacturer byte
	Chip         byte
}

// SelfTestResult holds the outcome of SelfTest.
type SelfTestResult struct {
	Echo     byte // stored value echoed by "write 1 1"
	ReadBack byte // value returned by "read 1"
	Identity Identity
}

// Operations implements the protocol procedures on top of a Dispatcher.
// Each call is independent; nothing is remembered between calls.
type Operations struct {
	dispatcher *Dispatcher
	progress   ProgressCallback
	logger     *zap.Logger
}

// NewOperations creates Operations on d. progress and logger may be nil.
func NewOperations(d *Dispatcher, progress ProgressCallback, logger *zap.Logger) *Operations {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Operations{dispatcher: d, progress: progress, logger: logger}
}

// Identify reads the manufacturer and chip identification codes.
func (o *Operations) Identify() (Identity, error) {
	manufacturer, err := o.dispatcher.SendByte(IdentCommand(0))
	if err != nil {
		return Identity{}, fmt.Errorf("manufacturer code: %w", err)
	}
	chip, err := o.dispatcher.SendByte(IdentCommand(1))
	if err != nil {
		return Identity{}, fmt.Errorf("chip code: %w", err)
	}
	return Identity{Manufacturer: manufacturer, Chip: chip}, nil
}

// Reset issues a chip reset. Any response counts as success.
func (o *Operations) Reset() error {
	_, err := o.dispatcher.Send(ResetCommand(), nil)
	return err
}

// EraseChip mass-erases size bytes. The firmware streams a '.' per erased
// unit and finishes with "pass", or with the failing address code.
func (o *Operations) EraseChip(size uint32) error {
	markers := 0
	payload, err := o.dispatcher.Send(EraseCommand(size), func() {
		markers++
		o.report(PhaseErasing, markers, int(size))
	})
	if err != nil {
		return err
	}

	if string(payload) != StatusPass {
		e := &EraseFailedError{Status: string(payload)}
		if len(payload) > 0 {
			e.Code = payload[0]
		}
		return e
	}
	return nil
}

// FillZeros writes 0x00 to every address in [0, size), verifying each echo.
func (o *Operations) FillZeros(ctx context.Context, size uint32) error {
	for addr := range size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled at address 0x%02x: %w", addr, err)
		}
		if err := o.verifiedWrite(addr, 0x00); err != nil {
			return err
		}
		o.report(PhaseFillZeros, int(addr)+1, int(size))
	}
	return nil
}

// WriteBulk writes payload starting at address 0. Each write is verified
// against the device echo; on the first mismatch the remaining bytes are
// not sent.
func (o *Operations) WriteBulk(ctx context.Context, payload []byte) error {
	for i, value := range payload {
		addr := uint32(i)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled at address 0x%02x: %w", addr, err)
		}
		if err := o.verifiedWrite(addr, value); err != nil {
			return err
		}
		o.report(PhaseWriting, i+1, len(payload))
	}
	return nil
}

// ReadBulk reads size bytes starting at address 0.
func (o *Operations) ReadBulk(ctx context.Context, size uint32) ([]byte, error) {
	data := make([]byte, 0, size)
	for addr := range size {
		if err := ctx.Err(); err != nil {
			return data, fmt.Errorf("cancelled at address 0x%02x: %w", addr, err)
		}
		b, err := o.dispatcher.SendByte(ReadCommand(addr))
		if err != nil {
			return data, fmt.Errorf("read address 0x%02x: %w", addr, err)
		}
		data = append(data, b)
		o.report(PhaseReading, int(addr)+1, int(size))
	}
	return data, nil
}

// VerifyErase reads back [0, size) and fails on the first cell that is not
// ErasedValue.
func (o *Operations) VerifyErase(ctx context.Context, size uint32) error {
	for addr := range size {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled at address 0x%02x: %w", addr, err)
		}
		b, err := o.dispatcher.SendByte(ReadCommand(addr))
		if err != nil {
			return fmt.Errorf("read address 0x%02x: %w", addr, err)
		}
		if b != ErasedValue {
			return &VerifyMismatchError{Address: addr, Expected: ErasedValue, Actual: b}
		}
		o.report(PhaseVerifying, int(addr)+1, int(size))
	}
	return nil
}

// WriteCell writes one byte and returns the value the device stored.
func (o *Operations) WriteCell(addr uint32, value byte) (byte, error) {
	return o.dispatcher.SendByte(WriteCommand(addr, value))
}

// ReadCell reads one byte.
func (o *Operations) ReadCell(addr uint32) (byte, error) {
	return o.dispatcher.SendByte(ReadCommand(addr))
}

// SelfTest writes 0x01 to address 1, reads it back and identifies the chip.
// The values are informational; no comparison is made.
func (o *Operations) SelfTest() (SelfTestResult, error) {
	var res SelfTestResult
	var err error

	if res.Echo, err = o.WriteCell(1, 1); err != nil {
		return res, fmt.Errorf("write address 0x01: %w", err)
	}
	if res.ReadBack, err = o.ReadCell(1); err != nil {
		return res, fmt.Errorf("read address 0x01: %w", err)
	}
	if res.Identity, err = o.Identify(); err != nil {
		return res, err
	}
	return res, nil
}

func (o *Operations) verifiedWrite(addr uint32, value byte) error {
	echo, err := o.dispatcher.SendByte(WriteCommand(addr, value))
	if err != nil {
		return fmt.Errorf("write address 0x%02x: %w", addr, err)
	}
	if echo != value {
		o.logger.Error("verify error",
			zap.Uint32("address", addr),
			zap.Uint8("expected", value),
			zap.Uint8("actual", echo),
		)
		return &VerifyMismatchError{Address: addr, Expected: value, Actual: echo}
	}
	return nil
}

func (o *Operations) report(phase Phase, done, total int) {
	if o.progress != nil {
		o.progress(Progress{Phase: phase, Done: done, Total: total})
	}
}
