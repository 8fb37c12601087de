// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateAwaitingReady
	StateReady
	StateExecuting
	StateAborted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAwaitingReady:
		return "awaiting ready"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateAborted:
		return "aborted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns a Transport for its whole lifetime and sequences protocol
// operations on it. Methods may be called from several goroutines but run one
// at a time.
type Session struct {
	mu        sync.Mutex
	transport Transport
	ops       *Operations
	disp      *Dispatcher
	config    Config
	logger    *zap.Logger
	state     State

	closeOnce sync.Once
	closeErr  error
}

// NewSession takes ownership of an open transport. The session starts in
// StateAwaitingReady; call WaitReady before any operation.
func NewSession(t Transport, opts ...Option) *Session {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	disp := NewDispatcher(t, cfg.Profile, cfg.Logger)
	return &Session{
		transport: t,
		disp:      disp,
		ops:       NewOperations(disp, cfg.Progress, cfg.Logger),
		config:    cfg,
		logger:    cfg.Logger,
		state:     StateAwaitingReady,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns the active protocol profile.
func (s *Session) Profile() Profile {
	return s.config.Profile
}

// WaitReady blocks until the device announces "ready". This is the one read
// without a timeout: the AVR boot time after a port open is not under host
// control. The configured timeout is restored afterwards.
//
// Cancelling ctx closes the session, which unblocks the pending read.
func (s *Session) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateAwaitingReady:
	default:
		return nil
	}

	if err := s.transport.SetTimeout(0); err != nil {
		return err
	}

	markers := 0
	var onProgress func()
	if s.config.Profile.ProgressMarkers {
		onProgress = func() {
			markers++
			s.ops.report(PhaseConnecting, markers, 0)
		}
	}

	stop := context.AfterFunc(ctx, func() { s.Close() })
	_, err := s.disp.WaitFor(StatusReady, onProgress)
	if !stop() {
		s.state = StateClosed
		return fmt.Errorf("wait for ready: %w", context.Cause(ctx))
	}
	if err != nil {
		return fmt.Errorf("wait for ready: %w", err)
	}

	if err := s.transport.SetTimeout(s.config.Timeout); err != nil {
		return err
	}

	s.state = StateReady
	s.logger.Info("device ready",
		zap.String("profile", s.config.Profile.Name),
		zap.Int("markers", markers),
	)
	return nil
}

// run executes fn as one operation. Any failure leaves the session Aborted;
// further operations are still accepted.
func (s *Session) run(name string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateDisconnected, StateAwaitingReady:
		return ErrNotReady
	}

	s.state = StateExecuting
	start := time.Now()
	s.logger.Info("operation started", zap.String("operation", name))

	if err := fn(); err != nil {
		s.state = StateAborted
		s.logger.Error("operation aborted",
			zap.String("operation", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}

	s.state = StateReady
	s.logger.Info("operation complete",
		zap.String("operation", name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Identify reads the manufacturer and chip identification codes.
func (s *Session) Identify() (Identity, error) {
	var id Identity
	err := s.run("ident", func() error {
		var err error
		id, err = s.ops.Identify()
		return err
	})
	return id, err
}

// Reset resets the chip.
func (s *Session) Reset() error {
	return s.run("reset", s.ops.Reset)
}

// EraseChip mass-erases size bytes.
func (s *Session) EraseChip(size uint32) error {
	return s.run("erase", func() error {
		return s.ops.EraseChip(size)
	})
}

// FillZeros writes and verifies 0x00 at every address below size.
func (s *Session) FillZeros(ctx context.Context, size uint32) error {
	return s.run("fillzeros", func() error {
		return s.ops.FillZeros(ctx, size)
	})
}

// WriteBulk writes and verifies payload from address 0.
func (s *Session) WriteBulk(ctx context.Context, payload []byte) error {
	return s.run("write", func() error {
		if err := s.checkPayload(payload); err != nil {
			return err
		}
		return s.ops.WriteBulk(ctx, payload)
	})
}

// ReadBulk reads size bytes from address 0. On failure the bytes read so far
// are returned with the error.
func (s *Session) ReadBulk(ctx context.Context, size uint32) ([]byte, error) {
	var data []byte
	err := s.run("read", func() error {
		var err error
		data, err = s.ops.ReadBulk(ctx, size)
		return err
	})
	return data, err
}

// VerifyErase checks that every address below size reads back as 0xFF.
func (s *Session) VerifyErase(ctx context.Context, size uint32) error {
	return s.run("verify", func() error {
		return s.ops.VerifyErase(ctx, size)
	})
}

// SelfTest writes and reads address 1, then identifies the chip.
func (s *Session) SelfTest() (SelfTestResult, error) {
	var res SelfTestResult
	err := s.run("test", func() error {
		var err error
		res, err = s.ops.SelfTest()
		return err
	})
	return res, err
}

// Program fills the chip with zeros, erases it and writes payload. Steps run
// in order and the first failure stops the sequence.
func (s *Session) Program(ctx context.Context, size uint32, payload []byte) error {
	return s.run("program", func() error {
		if err := s.checkPayload(payload); err != nil {
			return err
		}
		if err := s.ops.FillZeros(ctx, size); err != nil {
			return fmt.Errorf("fill zeros: %w", err)
		}
		if err := s.ops.EraseChip(size); err != nil {
			return fmt.Errorf("erase: %w", err)
		}
		if err := s.ops.WriteBulk(ctx, payload); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return nil
	})
}

// Close releases the transport. Only the first call has an effect. It may be
// called from another goroutine while an operation is blocked reading: the
// transport is closed first, which fails the read and lets the operation
// return.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()

		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.logger.Debug("session closed")
	})
	return s.closeErr
}

func (s *Session) checkPayload(payload []byte) error {
	if uint64(len(payload)) > uint64(s.config.DeviceSize) {
		return fmt.Errorf("payload of %d bytes exceeds device size %d", len(payload), s.config.DeviceSize)
	}
	return nil
}
