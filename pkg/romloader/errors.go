// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned by a Transport when no byte arrived within the
// configured read timeout.
var ErrTimeout = errors.New("read timeout")

// ErrSessionClosed is returned when an operation is attempted on a closed session.
var ErrSessionClosed = errors.New("session closed")

// ErrNotReady is returned when an operation is attempted before the device
// reported ready.
var ErrNotReady = errors.New("device not ready")

// ConnectionError indicates that the transport could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolTimeout indicates that the response terminator was not seen before
// the transport timed out. Partial holds the bytes received so far.
type ProtocolTimeout struct {
	Command string
	Partial []byte
}

func (e *ProtocolTimeout) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("timeout waiting for response (%d bytes received)", len(e.Partial))
	}
	return fmt.Sprintf("timeout waiting for response to %q (%d bytes received)", e.Command, len(e.Partial))
}

// Is reports ErrTimeout as a match so callers can test with errors.Is.
func (e *ProtocolTimeout) Is(target error) bool {
	return target == ErrTimeout
}

// EraseFailedError indicates that the device did not answer "pass" to erase.
// Code is the first byte of the response, which the firmware uses to report
// the failing address.
type EraseFailedError struct {
	Code   byte
	Status string
}

func (e *EraseFailedError) Error() string {
	if len(e.Status) == 1 {
		return fmt.Sprintf("erase failed at address 0x%02x", e.Code)
	}
	return fmt.Sprintf("erase failed: device returned %q", e.Status)
}

// VerifyMismatchError indicates that the byte echoed or read back by the
// device differs from the intended value.
type VerifyMismatchError struct {
	Address  uint32
	Expected byte
	Actual   byte
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("verify error at address 0x%02x: 0x%02x expected but 0x%02x found",
		e.Address, e.Expected, e.Actual)
}

// ResponseError indicates a response that does not have the shape the verb
// requires, such as a multi-byte payload where a single byte is expected.
type ResponseError struct {
	Command string
	Payload []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected response to %q: % x", e.Command, e.Payload)
}

// UnsupportedError indicates a verb that the active protocol profile lacks.
type UnsupportedError struct {
	Verb    string
	Profile string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("command %q not supported by %s profile", e.Verb, e.Profile)
}

// IsVerifyMismatch returns true if err is or wraps a VerifyMismatchError.
func IsVerifyMismatch(err error) bool {
	var target *VerifyMismatchError
	return errors.As(err, &target)
}

// IsEraseFailed returns true if err is or wraps an EraseFailedError.
func IsEraseFailed(err error) bool {
	var target *EraseFailedError
	return errors.As(err, &target)
}
