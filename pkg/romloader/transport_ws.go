// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package romloader

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket bridge.
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketTransport is a Transport over a serial-to-WebSocket bridge. Each
// binary message carries raw bytes from the programmer's UART.
//
// A gorilla connection cannot be read again once a read deadline has passed,
// so the first ErrTimeout also closes the transport and later reads return
// ErrConnectionClosed. Unlike the serial transport, a response timeout over
// the bridge ends the session; reconnect to continue.
type WebSocketTransport struct {
	conn    *websocket.Conn
	buf     []byte
	off     int
	timeout time.Duration
	closed  atomic.Bool
}

// WebSocketOptions configures OpenWebSocket.
type WebSocketOptions struct {
	Username      string
	Password      string
	SkipSSLVerify bool
	Timeout       time.Duration
}

// OpenWebSocket dials a bridge at wsURL, using HTTP Basic auth when a
// username and password are given.
func OpenWebSocket(wsURL string, opts WebSocketOptions) (*WebSocketTransport, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, &ConnectionError{Port: wsURL, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, &ConnectionError{Port: wsURL, Err: fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &ConnectionError{Port: wsURL, Err: fmt.Errorf("HTTP %d: %w", resp.StatusCode, err)}
		}
		return nil, &ConnectionError{Port: wsURL, Err: err}
	}

	return NewWebSocketTransport(conn, opts.Timeout), nil
}

// NewWebSocketTransport wraps an established WebSocket connection.
func NewWebSocketTransport(conn *websocket.Conn, timeout time.Duration) *WebSocketTransport {
	return &WebSocketTransport{conn: conn, timeout: timeout}
}

// ReadByte returns the next buffered byte, reading a new binary message when
// the buffer is drained.
func (w *WebSocketTransport) ReadByte() (byte, error) {
	for w.off >= len(w.buf) {
		if w.closed.Load() {
			return 0, ErrConnectionClosed
		}

		var deadline time.Time
		if w.timeout > 0 {
			deadline = time.Now().Add(w.timeout)
		}
		if err := w.conn.SetReadDeadline(deadline); err != nil {
			return 0, err
		}

		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed.Store(true)
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return 0, ErrTimeout
			}
			return 0, err
		}

		// Text frames are bridge chatter, not UART data
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		w.off = 0
	}

	b := w.buf[w.off]
	w.off++
	return b, nil
}

func (w *WebSocketTransport) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketTransport) SetTimeout(d time.Duration) error {
	w.timeout = d
	return nil
}

func (w *WebSocketTransport) Close() error {
	w.closed.Store(true)
	return w.conn.Close()
}
