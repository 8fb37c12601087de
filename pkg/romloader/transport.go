// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Transport is the byte-level link to the programmer. It knows nothing about
// the protocol: command terminators are added by the Dispatcher.
type Transport interface {
	// ReadByte blocks until one byte arrives or the timeout expires, in which
	// case it returns ErrTimeout.
	ReadByte() (byte, error)

	// Write sends raw bytes to the device.
	Write(p []byte) (int, error)

	// SetTimeout changes the read timeout. A zero or negative duration
	// makes ReadByte block until a byte arrives.
	SetTimeout(d time.Duration) error

	// Close releases the link.
	Close() error
}

// SerialTransport is a Transport over a local serial port.
type SerialTransport struct {
	port serial.Port
	buf  [1]byte
}

// OpenSerial opens portName at baudRate with 8N1 framing. Opening the port
// resets the AVR on most boards, so callers wait for ready afterwards.
func OpenSerial(portName string, baudRate int, timeout time.Duration) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, &ConnectionError{Port: portName, Err: err}
	}

	t := &SerialTransport{port: port}
	if err := t.SetTimeout(timeout); err != nil {
		port.Close()
		return nil, &ConnectionError{Port: portName, Err: err}
	}
	return t, nil
}

// NewSerialTransport wraps an already opened serial port.
func NewSerialTransport(port serial.Port) *SerialTransport {
	return &SerialTransport{port: port}
}

func (s *SerialTransport) ReadByte() (byte, error) {
	n, err := s.port.Read(s.buf[:])
	if err != nil {
		return 0, err
	}
	// go.bug.st/serial reports an expired read timeout as a zero-length read
	if n == 0 {
		return 0, ErrTimeout
	}
	return s.buf[0], nil
}

func (s *SerialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialTransport) SetTimeout(d time.Duration) error {
	if d <= 0 {
		d = serial.NoTimeout
	}
	if err := s.port.SetReadTimeout(d); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	return nil
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}
