// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

// ErrClosed is returned once the underlying connection has stopped delivering data
var ErrClosed = errors.New("bridge connection closed")

// Client sends I2C transactions to a bridge and implements sen6x.Bus.
// Requests are serialized; one Client may be shared between goroutines.
type Client struct {
	rw      io.ReadWriter
	address uint64
	timeout time.Duration
	log     logrus.FieldLogger

	mu      sync.Mutex
	packets chan *Packet
	done    chan struct{}
	readErr error
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithAddress sets the bridge address requests are sent to
func WithAddress(address uint64) ClientOption {
	return func(c *Client) { c.address = address }
}

// WithTimeout sets how long to wait for each reply
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

// WithLogger sets the logger used for packet tracing (debug level)
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient starts reading packets from rw. The client stops when a read
// from rw fails; closing rw is the caller's job.
func NewClient(rw io.ReadWriter, opts ...ClientOption) *Client {
	c := &Client{
		rw:      rw,
		address: AddressBroadcast,
		timeout: DefaultTimeout,
		log:     logrus.StandardLogger(),
		packets: make(chan *Packet, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)

	d := NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := c.rw.Read(buf)
		for _, b := range buf[:n] {
			p, derr := d.DecodeByte(b)
			if derr != nil {
				c.log.WithError(derr).Debug("bridge decode error")
				continue
			}
			if p == nil {
				continue
			}
			c.log.Debugf("bridge rx %s", p)
			select {
			case c.packets <- p:
			default:
				c.log.Warn("bridge reply queue full, dropping packet")
			}
		}
		if err != nil {
			c.readErr = err
			return
		}
	}
}

// Write sends w to the I2C device at addr
func (c *Client) Write(addr uint16, w []byte) error {
	_, err := c.request(context.Background(), NewI2CWrite(c.address, addr, w), MsgI2CAck)
	return err
}

// Read reads n bytes from the I2C device at addr
func (c *Client) Read(addr uint16, n int) ([]byte, error) {
	p, err := c.request(context.Background(), NewI2CRead(c.address, addr, n), MsgI2CData)
	if err != nil {
		return nil, err
	}
	data, ok := p.Data()
	if !ok {
		return nil, &sen6x.Error{Code: sen6x.CodeProtocol, Op: "I2C_READ", Err: errors.New("reply carries no data")}
	}
	return data, nil
}

// Ping checks that the bridge is alive and returns its uptime
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	p, err := c.request(ctx, NewPingRequest(c.address), MsgPingResponse)
	if err != nil {
		return 0, err
	}
	ms, _ := GetMapUint(p.PayloadMap(), keyUptime)
	return time.Duration(ms) * time.Millisecond, nil
}

// request sends req and waits for a reply of type want or an error message
func (c *Client) request(ctx context.Context, req *Packet, want uint8) (*Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := MessageName(req.Type())

	// Late replies to an earlier, timed out request are stale now
	for drained := false; !drained; {
		select {
		case p := <-c.packets:
			c.log.Debugf("bridge discarding stale %s", p)
		default:
			drained = true
		}
	}

	select {
	case <-c.done:
		if len(c.packets) == 0 {
			return nil, c.closedErr()
		}
	default:
	}

	frame, err := EncodePacket(req)
	if err != nil {
		return nil, &sen6x.Error{Code: sen6x.CodeInvalidParameter, Op: op, Err: err}
	}
	c.log.Debugf("bridge tx %s", req)
	if _, err := c.rw.Write(frame); err != nil {
		return nil, fmt.Errorf("bridge write failed: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case p := <-c.packets:
			switch p.Type() {
			case want:
				return p, nil
			case MsgError:
				return nil, bridgeError(op, p)
			}
			c.log.Debugf("bridge ignoring %s while waiting for %s", p, MessageName(want))
		case <-timer.C:
			return nil, &sen6x.Error{Code: sen6x.CodeTimeout, Op: op, Err: fmt.Errorf("no reply within %v", c.timeout)}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			if len(c.packets) > 0 {
				continue
			}
			return nil, c.closedErr()
		}
	}
}

// bridgeError converts an Error message to its sen6x error. A missing or
// zero code is reported as Protocol so the result never reads as OK.
func bridgeError(op string, p *Packet) error {
	code, ok := GetMapUint(p.PayloadMap(), keyCode)
	if !ok || code == uint64(sen6x.CodeOK) || code > 0xFF {
		return &sen6x.Error{Code: sen6x.CodeProtocol, Op: op, Err: fmt.Errorf("bridge reported invalid error code %d", code)}
	}
	return &sen6x.Error{Code: sen6x.Code(code), Op: op, Err: errors.New("reported by bridge")}
}

// closedErr wraps ErrClosed with the read error that stopped the client.
// Only valid once done is closed.
func (c *Client) closedErr() error {
	if c.readErr != nil && !errors.Is(c.readErr, io.EOF) {
		return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
	}
	return ErrClosed
}
