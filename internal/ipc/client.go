package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/hyprconnect/hyprconnect/internal/failure"
)

// DefaultClientTimeout covers the slowest action (mount then open) with
// headroom.
const DefaultClientTimeout = 30 * time.Second

// Client sends single requests to a running daemon.
type Client struct {
	Path    string
	Timeout time.Duration
}

// NewClient returns a Client for the socket at path.
func NewClient(path string) *Client {
	return &Client{Path: path, Timeout: DefaultClientTimeout}
}

// Do sends req and waits for the response. A daemon-side failure is returned
// both in the Response and as a *failure.Error.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.Path)
	if err != nil {
		return Response{}, failure.Wrap(failure.BackendUnavailable, err, "connect to hyprconnectd at %s", c.Path)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return Response{}, failure.Wrap(failure.ActionTimeout, err, "waiting for hyprconnectd")
		}
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, failure.Wrap(failure.ProtocolError, err, "decode response")
	}
	return resp, resp.Err()
}

// Call is a convenience for Do with a bare command.
func (c *Client) Call(ctx context.Context, command string) (Response, error) {
	return c.Do(ctx, Request{Command: command})
}
