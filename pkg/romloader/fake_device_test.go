// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fakeDevice simulates the programmer firmware in memory. Command lines
// written to it are executed immediately and their responses queued for
// ReadByte. An empty queue reads as a timeout.
type fakeDevice struct {
	memory   []byte
	rx       []byte
	pending  []byte
	commands []string

	identity     Identity
	eraseStatus  string
	eraseMarkers int
	echoFaults   map[uint32]byte // stored value override for write
	silent       map[string]bool // verbs that never answer

	timeouts []time.Duration
	closes   int
	writeErr error
}

func newFakeDevice(size int) *fakeDevice {
	return &fakeDevice{
		memory:      make([]byte, size),
		eraseStatus: StatusPass,
		identity:    Identity{Manufacturer: 0xBF, Chip: 0xB7},
		echoFaults:  make(map[uint32]byte),
		silent:      make(map[string]bool),
	}
}

// queue appends raw bytes to the receive stream.
func (f *fakeDevice) queue(s string) {
	f.rx = append(f.rx, s...)
}

func (f *fakeDevice) ReadByte() (byte, error) {
	if len(f.rx) == 0 {
		return 0, ErrTimeout
	}
	b := f.rx[0]
	f.rx = f.rx[1:]
	return b, nil
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.pending = append(f.pending, p...)
	for {
		i := bytes.IndexByte(f.pending, CommandTerminator)
		if i < 0 {
			break
		}
		line := string(f.pending[:i])
		f.pending = f.pending[i+1:]
		f.commands = append(f.commands, line)
		f.execute(line)
	}
	return len(p), nil
}

func (f *fakeDevice) SetTimeout(d time.Duration) error {
	f.timeouts = append(f.timeouts, d)
	return nil
}

func (f *fakeDevice) Close() error {
	f.closes++
	return nil
}

func (f *fakeDevice) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 || f.silent[fields[0]] {
		return
	}

	switch fields[0] {
	case VerbWrite:
		addr, value := f.arg(fields, 1), f.arg(fields, 2)
		stored := byte(value)
		if fault, ok := f.echoFaults[uint32(addr)]; ok {
			stored = fault
		}
		f.memory[addr] = stored
		f.respond([]byte{stored})
	case VerbRead:
		f.respond([]byte{f.memory[f.arg(fields, 1)]})
	case VerbErase:
		f.queue(strings.Repeat(".", f.eraseMarkers))
		if f.eraseStatus == StatusPass {
			size := f.arg(fields, 1)
			for i := 0; i < size && i < len(f.memory); i++ {
				f.memory[i] = ErasedValue
			}
		}
		f.respond([]byte(f.eraseStatus))
	case VerbIdent:
		if f.arg(fields, 1) == 0 {
			f.respond([]byte{f.identity.Manufacturer})
		} else {
			f.respond([]byte{f.identity.Chip})
		}
	case VerbReset:
		f.respond(nil)
	default:
		f.respond([]byte("?"))
	}
}

func (f *fakeDevice) respond(payload []byte) {
	f.rx = append(f.rx, payload...)
	f.rx = append(f.rx, ResponseTerminator...)
}

func (f *fakeDevice) arg(fields []string, i int) int {
	if i >= len(fields) {
		return 0
	}
	n, err := strconv.Atoi(fields[i])
	if err != nil {
		return 0
	}
	return n
}

// countVerb returns how many commands with the given verb were received.
func (f *fakeDevice) countVerb(verb string) int {
	n := 0
	for _, c := range f.commands {
		if c == verb || strings.HasPrefix(c, verb+" ") {
			n++
		}
	}
	return n
}

// byteStream is a Transport that replays a fixed byte sequence.
type byteStream struct {
	data []byte
	err  error
}

func (b *byteStream) ReadByte() (byte, error) {
	if len(b.data) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, ErrTimeout
	}
	c := b.data[0]
	b.data = b.data[1:]
	return c, nil
}

func (b *byteStream) Write(p []byte) (int, error)      { return len(p), nil }
func (b *byteStream) SetTimeout(d time.Duration) error { return nil }
func (b *byteStream) Close() error                     { return nil }

var errLinkDown = errors.New("link down")

// blockingLink is a Transport whose reads block until Close, like a serial
// port opened with no read timeout and a silent device.
type blockingLink struct {
	reading   chan struct{}
	readOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once
}

func newBlockingLink() *blockingLink {
	return &blockingLink{
		reading: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (l *blockingLink) ReadByte() (byte, error) {
	l.readOnce.Do(func() { close(l.reading) })
	<-l.closed
	return 0, errLinkDown
}

func (l *blockingLink) Write(p []byte) (int, error)      { return len(p), nil }
func (l *blockingLink) SetTimeout(d time.Duration) error { return nil }

func (l *blockingLink) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *blockingLink) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}
