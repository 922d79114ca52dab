// internal/transport/listener.go
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/logutil"
)

const (
	replyContent = "HTTP/1.1 200 OK\r\n\r\n"
	replyEmpty   = "HTTP/1.1 204 No Content\r\n\r\n\r\n"
)

// Handler receives decoded hub commands.
type Handler interface {
	HandleCommand(ctx context.Context, cmd string)
}

type ListenerConfig struct {
	// Address is the "host:port" the hub calls.
	Address string

	// AcceptWait is how long Poll waits for a hub connection.
	AcceptWait time.Duration

	// ReadTimeout bounds one inbound exchange.
	ReadTimeout time.Duration

	LoggerFactory logging.LoggerFactory
}

// Listener serves one hub-initiated exchange per Poll.
type Listener struct {
	tcp     *net.TCPListener
	handler Handler
	log     logging.LeveledLogger

	acceptWait  time.Duration
	readTimeout time.Duration
}

func Listen(cfg ListenerConfig, h Handler) (*Listener, error) {
	if h == nil {
		return nil, errors.New("transport: command handler required")
	}
	if cfg.Address == "" {
		return nil, errors.New("transport: listen address required")
	}
	if cfg.AcceptWait <= 0 {
		cfg.AcceptWait = time.Millisecond
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("transport: listen address %q: %w", cfg.Address, err)
	}
	tcp, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}

	return &Listener{
		tcp:         tcp,
		handler:     h,
		log:         logutil.Scoped(cfg.LoggerFactory, "transport"),
		acceptWait:  cfg.AcceptWait,
		readTimeout: cfg.ReadTimeout,
	}, nil
}

func (l *Listener) Addr() net.Addr { return l.tcp.Addr() }

func (l *Listener) Close() error { return l.tcp.Close() }

// Poll serves at most one inbound exchange and reports whether one arrived.
// A waiting period without a connection is not an error.
func (l *Listener) Poll(ctx context.Context) (bool, error) {
	_ = l.tcp.SetDeadline(time.Now().Add(l.acceptWait))
	conn, err := l.tcp.Accept()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("transport: accept: %w", err)
	}

	cmd, err := l.serve(conn)
	conn.Close()
	if err != nil {
		return true, err
	}

	if cmd == "" {
		l.log.Debug("no valid data received")
		return true, nil
	}
	cmd = strings.ReplaceAll(cmd, "%20", " ")
	l.log.Debugf("command %q", cmd)
	l.handler.HandleCommand(ctx, cmd)
	return true, nil
}

// serve accumulates the request up to the blank line and writes the reply.
func (l *Listener) serve(conn net.Conn) (string, error) {
	_ = conn.SetDeadline(time.Now().Add(l.readTimeout))

	req, err := readRequest(bufio.NewReader(conn))
	if err != nil {
		return "", fmt.Errorf("transport: read request: %w", err)
	}
	if req.dropped > 0 {
		l.log.Warnf("request exceeded %d bytes, %d dropped", MaxMessage, req.dropped)
	}

	cmd := extractCommand(req.buf)
	reply := replyContent
	if cmd == "" {
		reply = replyEmpty
	}
	if err := writeAll(conn, []byte(reply)); err != nil {
		return "", fmt.Errorf("transport: reply: %w", err)
	}
	return cmd, nil
}

type request struct {
	buf     string
	dropped int
}

// readRequest reads byte by byte until a newline ends a blank line.
// Bytes past MaxMessage are consumed but not kept.
func readRequest(r *bufio.Reader) (request, error) {
	var (
		sb    strings.Builder
		out   request
		blank = true
	)
	for {
		c, err := r.ReadByte()
		if err != nil {
			out.buf = sb.String()
			return out, err
		}

		if sb.Len() < MaxMessage {
			sb.WriteByte(c)
		} else {
			out.dropped++
		}

		switch {
		case c == '\n' && blank:
			out.buf = sb.String()
			return out, nil
		case c == '\n':
			blank = true
		case c != '\r':
			blank = false
		}
	}
}

// extractCommand returns the text between the first '/' and the first '?'.
// Without a '?' it stops before the protocol version, or at the end of buf.
func extractCommand(buf string) string {
	start := strings.IndexByte(buf, '/') + 1
	end := strings.IndexByte(buf, '?')
	if end < 0 {
		end = strings.Index(buf[start:], " HTTP/")
		if end < 0 {
			end = len(buf)
		} else {
			end += start
		}
	}
	if end < start {
		start, end = end, start
	}
	return buf[start:end]
}
