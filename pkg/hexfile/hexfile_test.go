// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hexfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{
			name:  "mixed separators and junk",
			input: "AB\n12zz34",
			want:  []byte{0xAB, 0x12, 0x34},
		},
		{
			name:  "lower and upper case",
			input: "deadBEEF",
			want:  []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			name:  "pair split by line break",
			input: "0\r\n1",
			want:  []byte{0x01},
		},
		{
			name:  "odd trailing digit dropped",
			input: "ff0",
			want:  []byte{0xFF},
		},
		{
			name:  "no hex digits",
			input: "xyz\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Parse() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestDumpWriter_Layout(t *testing.T) {
	data := make([]byte, 22)
	for i := range data {
		data[i] = byte(i)
	}

	var buf bytes.Buffer
	dw := NewDumpWriter(&buf)
	if _, err := dw.Write(data[:5]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := dw.Write(data[5:]); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := dw.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := "00\n" +
		"0102030405060708090a0b0c0d0e0f10111213" + "14\n" +
		"15"
	if buf.String() != want {
		t.Errorf("dump = %q, want %q", buf.String(), want)
	}
}

func TestDumpWriter_ParsesBack(t *testing.T) {
	data := []byte{0x00, 0xFF, 0x7E, 0x2E, 0x0D, 0x0A}

	var buf bytes.Buffer
	dw := NewDumpWriter(&buf)
	if _, err := dw.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := dw.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Parse(dump) = % x, want % x", got, data)
	}
}

func TestAppendDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.txt")

	if err := AppendDump(path, []byte{0xAB}); err != nil {
		t.Fatalf("AppendDump() error = %v", err)
	}
	if err := AppendDump(path, []byte{0xCD}); err != nil {
		t.Fatalf("AppendDump() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "ab\ncd\n" {
		t.Errorf("file = %q, want %q", content, "ab\ncd\n")
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ParseFile() expected error for missing file")
	}
}

func TestConvertBinary(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		wantCount int
	}{
		{
			name:      "two bytes with noise",
			input:     "1010 1011\n0000x0001",
			want:      "ab01",
			wantCount: 2,
		},
		{
			name:      "incomplete trailing byte",
			input:     "11111111101",
			want:      "ff",
			wantCount: 1,
		},
		{
			name:      "empty",
			input:     "",
			want:      "",
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n, err := ConvertBinary(strings.NewReader(tt.input), &out)
			if err != nil {
				t.Fatalf("ConvertBinary() error = %v", err)
			}
			if n != tt.wantCount {
				t.Errorf("count = %d, want %d", n, tt.wantCount)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestConvertBinary_LineBreaks(t *testing.T) {
	input := strings.Repeat("00000001", ConvertLineBytes+1)

	var out bytes.Buffer
	n, err := ConvertBinary(strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("ConvertBinary() error = %v", err)
	}
	if n != ConvertLineBytes+1 {
		t.Errorf("count = %d, want %d", n, ConvertLineBytes+1)
	}

	want := strings.Repeat("01", ConvertLineBytes) + "\r" + "01"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
