// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/Thermoquad/sen6x/pkg/bridge"
	"github.com/Thermoquad/sen6x/pkg/i2cbus"
	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

// Connection is a byte stream to a bridge, over serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection exposes binary WebSocket messages as a byte stream
type WebSocketConnection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		// Bridge packets only travel in binary messages
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = copy(p, w.buf)
		return w.bufOffset, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port at 8N1
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("SEN6X_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens a bridge connection, WebSocket or serial, from the
// device configuration
func OpenConnection(dc DeviceConfig) (Connection, string, error) {
	if dc.URL != "" {
		password := ""
		if dc.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(dc.URL, dc.Username, password, dc.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", dc.URL), nil
	}

	if dc.Port != "" {
		conn, err := OpenSerialConnection(dc.Port, dc.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", dc.Port, dc.Baud), nil
	}

	return nil, "", errors.New("one of --i2c, --port or --url must be specified")
}

// Session is an open sensor with the transport behind it
type Session struct {
	Device *sen6x.Device
	Bridge *bridge.Client // nil on a local bus
	Info   string
	closer io.Closer
}

// Close releases the transport
func (s *Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenBridge connects to a bridge without touching the sensor
func OpenBridge(dc DeviceConfig) (*bridge.Client, Connection, string, error) {
	conn, info, err := OpenConnection(dc)
	if err != nil {
		return nil, nil, "", err
	}
	client := bridge.NewClient(conn,
		bridge.WithAddress(dc.BridgeAddress),
		bridge.WithTimeout(dc.Timeout),
		bridge.WithLogger(logger),
	)
	return client, conn, info, nil
}

// OpenSession opens the configured transport and selects the module variant,
// detecting it when the variant is "auto"
func OpenSession(dc DeviceConfig) (*Session, error) {
	s := &Session{}

	var bus sen6x.Bus
	if dc.I2C != "" {
		b, err := i2cbus.Open(dc.I2C)
		if err != nil {
			return nil, err
		}
		bus = b
		s.closer = b
		s.Info = fmt.Sprintf("I2C: %s", b)
	} else {
		client, conn, info, err := OpenBridge(dc)
		if err != nil {
			return nil, err
		}
		bus = client
		s.Bridge = client
		s.closer = conn
		s.Info = info
	}

	s.Device = sen6x.New(bus, sen6x.WithLogger(logger))

	if err := selectVariant(s.Device, dc.Variant); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

var errNoModule = errors.New("no supported SEN6x module detected")

func selectVariant(d *sen6x.Device, name string) error {
	if name == "" || strings.EqualFold(name, "auto") {
		if !d.Detect() {
			return errNoModule
		}
		logger.WithField("variant", d.Variant()).Debug("Module detected")
		return nil
	}

	v, err := sen6x.ParseVariant(name)
	if err != nil {
		return err
	}
	d.SetVariant(v)
	return nil
}
