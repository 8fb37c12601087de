// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"strconv"
)

// Verbs understood by the programmer firmware
const (
	VerbReady = "ready" // unsolicited, sent by the device after reset
	VerbErase = "erase"
	VerbWrite = "write"
	VerbRead  = "read"
	VerbIdent = "ident"
	VerbReset = "reset"
)

// Status literals returned by the firmware
const (
	StatusReady = "ready"
	StatusPass  = "pass"
	StatusFail  = "fail"
)

// Command is a single request line. The zero Arg means no argument.
type Command struct {
	Verb string
	Arg  string
}

// Bytes serializes the command as "<verb>[ <arg>]\r".
func (c Command) Bytes() []byte {
	n := len(c.Verb) + 1
	if c.Arg != "" {
		n += len(c.Arg) + 1
	}
	buf := make([]byte, 0, n)
	buf = append(buf, c.Verb...)
	if c.Arg != "" {
		buf = append(buf, ' ')
		buf = append(buf, c.Arg...)
	}
	return append(buf, CommandTerminator)
}

// String returns the command line without its terminator.
func (c Command) String() string {
	if c.Arg == "" {
		return c.Verb
	}
	return c.Verb + " " + c.Arg
}

// EraseCommand builds "erase <size>".
func EraseCommand(size uint32) Command {
	return Command{Verb: VerbErase, Arg: strconv.FormatUint(uint64(size), 10)}
}

// WriteCommand builds "write <addr> <value>" with both fields in decimal.
func WriteCommand(addr uint32, value byte) Command {
	return Command{
		Verb: VerbWrite,
		Arg:  strconv.FormatUint(uint64(addr), 10) + " " + strconv.Itoa(int(value)),
	}
}

// ReadCommand builds "read <addr>".
func ReadCommand(addr uint32) Command {
	return Command{Verb: VerbRead, Arg: strconv.FormatUint(uint64(addr), 10)}
}

// IdentCommand builds "ident <n>"; 0 selects the manufacturer code, 1 the chip code.
func IdentCommand(n int) Command {
	return Command{Verb: VerbIdent, Arg: strconv.Itoa(n)}
}

// ResetCommand builds "reset".
func ResetCommand() Command {
	return Command{Verb: VerbReset}
}
