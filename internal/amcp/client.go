package amcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	clog "github.com/baaaaaaaka/caspar-console/internal/log"
)

var ErrNotConnected = errors.New("not connected to server")

const (
	defaultDialTimeout    = 5 * time.Second
	defaultCommandTimeout = 10 * time.Second
)

type Options struct {
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	// Dialer defaults to EnvironmentDialer(DialTimeout).
	Dialer Dialer
	Logger zerolog.Logger
}

// Client holds one AMCP control connection. Commands are serialised: each
// Send writes one line and reads its full reply before the next may start.
type Client struct {
	dialTimeout    time.Duration
	commandTimeout time.Duration
	dialer         Dialer
	log            zerolog.Logger

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
	host string
	port int
}

func New(opts Options) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = EnvironmentDialer(opts.DialTimeout)
	}
	return &Client{
		dialTimeout:    opts.DialTimeout,
		commandTimeout: opts.CommandTimeout,
		dialer:         opts.Dialer,
		log:            opts.Logger,
	}
}

// Connect opens a connection to host:port, replacing any existing one.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("connect: empty host")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("connect: invalid port %d", port)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()

	dctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := c.dialer.DialContext(dctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	c.host = host
	c.port = port
	c.log.Info().Str(clog.FieldHost, host).Int(clog.FieldPort, port).Msg("amcp connected")
	return nil
}

// Close ends the session. Closing a closed client is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.r, c.host, c.port = nil, nil, "", 0
	c.log.Info().Msg("amcp disconnected")
	if err != nil {
		return fmt.Errorf("close amcp connection: %w", err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Endpoint returns the host and port of the live connection.
func (c *Client) Endpoint() (string, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "", 0, false
	}
	return c.host, c.port, true
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn, c.r, c.host, c.port = nil, nil, "", 0
}

// Send writes one command and reads its reply. Transport failures drop the
// connection. Replies outside 2xx are returned together with a *ResponseError.
func (c *Client) Send(ctx context.Context, command string) (Response, error) {
	if strings.ContainsAny(command, "\r\n") {
		return Response{}, fmt.Errorf("command contains a line break: %q", command)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return Response{}, ErrNotConnected
	}

	conn := c.conn
	deadline := time.Now().Add(c.commandTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	defer func() {
		if c.conn != nil {
			_ = c.conn.SetDeadline(time.Time{})
		}
	}()

	// Unblock the read if ctx is cancelled mid-command.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write([]byte(command + "\r\n")); err != nil {
		c.dropLocked()
		return Response{}, fmt.Errorf("send %s: %w", verb(command), err)
	}
	resp, err := readResponse(c.r)
	if err != nil {
		c.dropLocked()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, fmt.Errorf("read %s reply: %w", verb(command), ctxErr)
		}
		return Response{}, fmt.Errorf("read %s reply: %w", verb(command), err)
	}
	c.log.Debug().Str(clog.FieldCommand, command).Int("code", resp.Code).Msg("amcp reply")
	if !resp.OK() {
		return resp, &ResponseError{Command: verb(command), Code: resp.Code, Message: resp.Message}
	}
	return resp, nil
}

func verb(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return command
	}
	if len(fields) > 1 && (fields[0] == "INFO" || fields[0] == "MIXER") {
		return fields[0] + " " + fields[1]
	}
	return fields[0]
}

// Version asks the server for its version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.Send(ctx, "VERSION")
	if err != nil {
		return "", err
	}
	if len(resp.Data) > 0 {
		if v := strings.TrimSpace(resp.Data[0]); v != "" {
			return v, nil
		}
	}
	return resp.Message, nil
}

// Info returns the data lines of INFO, or of INFO <what> when what is set.
func (c *Client) Info(ctx context.Context, what string) ([]string, error) {
	cmd := "INFO"
	if what = strings.TrimSpace(what); what != "" {
		cmd += " " + what
	}
	resp, err := c.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
