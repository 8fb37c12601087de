// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hexfile reads and writes the free-form hex ASCII payload files
// used by the ROM loader, and converts binary ASCII dumps into that format.
package hexfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// DumpLineBytes is the number of bytes per line written by DumpWriter.
const DumpLineBytes = 20

// ConvertLineBytes is the number of bytes per line written by ConvertBinary.
const ConvertLineBytes = 32

// Parse reads hex digit pairs from r. Every character outside [0-9a-fA-F]
// is ignored, the first digit of a pair is the high nibble, and an odd
// trailing digit is dropped.
func Parse(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	var out []byte
	var high byte
	half := false

	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}

		nibble, ok := hexValue(c)
		if !ok {
			continue
		}
		if !half {
			high = nibble
			half = true
			continue
		}
		out = append(out, high<<4|nibble)
		half = false
	}
}

// ParseFile parses the payload file at path.
func ParseFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// DumpWriter formats bytes as lowercase hex pairs, breaking the line after
// the first byte and after every DumpLineBytes bytes thereafter. This is the
// layout of the firmware-era read dumps and parses back with Parse.
type DumpWriter struct {
	w     *bufio.Writer
	index int
}

// NewDumpWriter creates a DumpWriter on w. Call Flush when done.
func NewDumpWriter(w io.Writer) *DumpWriter {
	return &DumpWriter{w: bufio.NewWriter(w)}
}

// Write formats p. It returns len(p) on success.
func (d *DumpWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		if _, err := fmt.Fprintf(d.w, "%02x", b); err != nil {
			return i, err
		}
		if d.index%DumpLineBytes == 0 {
			if err := d.w.WriteByte('\n'); err != nil {
				return i, err
			}
		}
		d.index++
	}
	return len(p), nil
}

// Flush writes any buffered output.
func (d *DumpWriter) Flush() error {
	return d.w.Flush()
}

// AppendDump appends data to the file at path in DumpWriter format.
func AppendDump(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	dw := NewDumpWriter(f)
	if _, err := dw.Write(data); err != nil {
		return err
	}
	if err := dw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// ConvertBinary reads a binary ASCII dump from r, keeping only '0' and '1',
// and writes every 8 bits to w as one lowercase hex pair, with a carriage
// return after every ConvertLineBytes bytes. An incomplete trailing byte is
// dropped. It returns the number of bytes converted.
func ConvertBinary(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	count := 0
	var acc byte
	bits := 0

	for {
		c, err := br.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return count, err
			}
			break
		}
		if c != '0' && c != '1' {
			continue
		}

		acc = acc<<1 | (c - '0')
		bits++
		if bits < 8 {
			continue
		}

		if _, err := fmt.Fprintf(bw, "%02x", acc); err != nil {
			return count, err
		}
		count++
		if count%ConvertLineBytes == 0 {
			if err := bw.WriteByte('\r'); err != nil {
				return count, err
			}
		}
		acc, bits = 0, 0
	}

	return count, bw.Flush()
}
