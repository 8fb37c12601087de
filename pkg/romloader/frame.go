// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"bytes"
	"errors"
)

// Wire protocol constants
const (
	CommandTerminator = '\r'
	ProgressMarker    = '.'
)

// ResponseTerminator ends every response line.
var ResponseTerminator = []byte("\r\n")

// maxResponseBacklog bounds the accumulator. A device talking at the wrong
// baud rate sends noise forever while the ready wait has no timeout.
const maxResponseBacklog = 1024

// FrameReader assembles transport bytes into responses, diverting progress
// markers to a callback.
type FrameReader struct {
	transport Transport
	acc       []byte
}

// NewFrameReader creates a FrameReader on t.
func NewFrameReader(t Transport) *FrameReader {
	return &FrameReader{
		transport: t,
		acc:       make([]byte, 0, maxResponseBacklog),
	}
}

// ReadUntil reads until the accumulated bytes end with expect followed by
// CRLF and returns everything before the CRLF.
//
// When onProgress is non-nil every '.' byte is reported to it and kept out
// of the payload. With a nil onProgress, '.' is ordinary data. The suffix is
// matched against the whole accumulator, so markers may fall anywhere,
// including between the bytes of the terminator.
//
// Only the last maxResponseBacklog bytes are kept; longer responses lose
// their head but still match the suffix.
func (r *FrameReader) ReadUntil(expect string, onProgress func()) ([]byte, error) {
	suffix := make([]byte, 0, len(expect)+len(ResponseTerminator))
	suffix = append(suffix, expect...)
	suffix = append(suffix, ResponseTerminator...)

	r.acc = r.acc[:0]
	for !bytes.HasSuffix(r.acc, suffix) {
		b, err := r.transport.ReadByte()
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				return nil, &ProtocolTimeout{Partial: bytes.Clone(r.acc)}
			}
			return nil, err
		}

		if onProgress != nil && b == ProgressMarker {
			onProgress()
			continue
		}
		if len(r.acc) >= maxResponseBacklog {
			keep := min(len(suffix)-1, len(r.acc))
			r.acc = r.acc[:copy(r.acc, r.acc[len(r.acc)-keep:])]
		}
		r.acc = append(r.acc, b)
	}

	payload := r.acc[:len(r.acc)-len(ResponseTerminator)]
	return bytes.Clone(payload), nil
}
