// internal/transport/client.go
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/logutil"
)

// MaxMessage bounds outbound and inbound payloads.
const MaxMessage = 200

var (
	// ErrSendFailed wraps the last error after both attempts failed.
	ErrSendFailed = errors.New("transport: send failed")

	// ErrNotConnected means no hub endpoint is known yet.
	ErrNotConnected = errors.New("transport: hub not resolved")
)

// HubResolver supplies the hub endpoint of the live session.
type HubResolver interface {
	HubAddr() string
}

type Config struct {
	// Timeout bounds one attempt: dial, write and reply drain.
	Timeout time.Duration

	LoggerFactory logging.LoggerFactory
}

// Client posts messages to the hub (stateless, 1 message = 1 connection).
type Client struct {
	hub     HubResolver
	timeout time.Duration
	log     logging.LeveledLogger

	attempts uint64
}

func NewClient(cfg Config, hub HubResolver) (*Client, error) {
	if hub == nil {
		return nil, errors.New("transport: hub resolver required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Client{
		hub:     hub,
		timeout: cfg.Timeout,
		log:     logutil.Scoped(cfg.LoggerFactory, "transport"),
	}, nil
}

// Attempts counts connection attempts made since construction.
func (c *Client) Attempts() uint64 { return c.attempts }

// Send delivers one message. A failed connect is retried once on a fresh
// connection; a failure after connecting is not retried.
func (c *Client) Send(ctx context.Context, msg string) error {
	if len(msg) > MaxMessage {
		return fmt.Errorf("transport: message of %d bytes exceeds %d", len(msg), MaxMessage)
	}
	addr := c.hub.HubAddr()
	if addr == "" {
		return ErrNotConnected
	}

	pkt := buildRequest(addr, msg)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var dialed bool
		dialed, err = c.exchange(ctx, addr, pkt)
		if err == nil {
			c.log.Debugf("sent %q", msg)
			return nil
		}
		if dialed || ctx.Err() != nil {
			break
		}
		c.log.Debugf("connect to %s failed, retrying: %v", addr, err)
	}

	c.log.Warnf("send %q: %v", msg, err)
	return fmt.Errorf("%w: %v", ErrSendFailed, err)
}

// exchange runs one attempt bounded by the client timeout.
// dialed reports whether the connection was established.
func (c *Client) exchange(ctx context.Context, addr string, pkt []byte) (dialed bool, err error) {
	c.attempts++
	deadline := time.Now().Add(c.timeout)

	d := net.Dialer{Deadline: deadline}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(deadline)
	if err := writeAll(conn, pkt); err != nil {
		return true, fmt.Errorf("write: %w", err)
	}

	// The reply carries nothing the node acts on.
	if err := drainReply(conn); err != nil {
		if drainFailed(err) {
			return true, fmt.Errorf("drain: %w", err)
		}
		c.log.Debugf("reply from %s: %v", addr, err)
	}
	return true, nil
}

// drainReply consumes one reply: its head and any framed body.
// It returns without waiting for the hub to close the connection.
func drainReply(conn net.Conn) error {
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// drainFailed reports whether err broke the connection itself. A missing,
// malformed or late reply does not fail the send.
func drainFailed(err error) bool {
	var op *net.OpError
	return errors.As(err, &op) && !errors.Is(err, os.ErrDeadlineExceeded)
}

//
// ---- request envelope ----
//
// POST / HTTP/1.1
// HOST: <ip>:<port>
// CONTENT-TYPE: text
// CONTENT-LENGTH: <n>
// CONNECTION: close
// <blank>
// <message>
//

func buildRequest(hub, msg string) []byte {
	b := make([]byte, 0, 100+len(msg))
	b = append(b, "POST / HTTP/1.1\r\n"...)
	b = append(b, "HOST: "...)
	b = append(b, hub...)
	b = append(b, "\r\nCONTENT-TYPE: text\r\nCONTENT-LENGTH: "...)
	b = strconv.AppendInt(b, int64(len(msg)), 10)
	b = append(b, "\r\nCONNECTION: close\r\n\r\n"...)
	b = append(b, msg...)
	b = append(b, "\r\n"...)
	return b
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
