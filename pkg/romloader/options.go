// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"time"

	"go.uber.org/zap"
)

// DefaultDeviceSize is the addressable size of the default 2 Mbit chip.
const DefaultDeviceSize = 262144

// DefaultTimeout is the byte read timeout for ordinary commands.
const DefaultTimeout = 5 * time.Second

// Phase names the step a progress event belongs to.
type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseFillZeros  Phase = "fill zeros"
	PhaseErasing    Phase = "erasing"
	PhaseWriting    Phase = "writing"
	PhaseReading    Phase = "reading"
	PhaseVerifying  Phase = "verifying"
)

// Progress is emitted while an operation runs. Total is zero when the
// amount of work is unknown.
type Progress struct {
	Phase Phase
	Done  int
	Total int
}

// ProgressCallback receives progress events. It runs on the caller's
// goroutine between commands and should return quickly.
type ProgressCallback func(Progress)

// Config holds the session configuration.
type Config struct {
	// Profile selects the firmware command set
	Profile Profile

	// DeviceSize bounds the payload accepted by WriteBulk and Program
	DeviceSize uint32

	// Timeout is the byte read timeout restored after the ready wait
	Timeout time.Duration

	Logger   *zap.Logger
	Progress ProgressCallback
}

func defaultConfig() Config {
	return Config{
		Profile:    ProfileStandard,
		DeviceSize: DefaultDeviceSize,
		Timeout:    DefaultTimeout,
		Logger:     zap.NewNop(),
	}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithProfile selects the firmware profile. Default is ProfileStandard.
func WithProfile(p Profile) Option {
	return func(c *Config) {
		c.Profile = p
	}
}

// WithDeviceSize sets the chip size in bytes.
func WithDeviceSize(size uint32) Option {
	return func(c *Config) {
		if size > 0 {
			c.DeviceSize = size
		}
	}
}

// WithTimeout sets the byte read timeout used outside the ready wait.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithLogger sets the logger.
//
// Example:
//
//	sess := romloader.NewSession(t, romloader.WithLogger(logging.GetLogger()))
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithProgressCallback sets a callback to track operation progress.
//
// Example:
//
//	sess := romloader.NewSession(t,
//	    romloader.WithProgressCallback(func(p romloader.Progress) {
//	        fmt.Printf("%s %d/%d\n", p.Phase, p.Done, p.Total)
//	    }),
//	)
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.Progress = cb
	}
}
