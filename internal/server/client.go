package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/gate"
)

// Client talks to a Server over its Unix socket.
type Client struct {
	socketPath string
	secret     string
}

// NewClient creates a client for the server listening on socketPath.
func NewClient(socketPath, secret string) *Client {
	return &Client{socketPath: socketPath, secret: secret}
}

// Execute asks the server to run req.
func (c *Client) Execute(ctx context.Context, req gate.Request) (*gate.Result, error) {
	resp, err := c.roundTrip(ctx, OpExecute, req)
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, errors.New("server response missing result")
	}
	return resp.Result, nil
}

// Validate asks the server whether command would be permitted.
func (c *Client) Validate(ctx context.Context, command string) (*gate.Validation, error) {
	resp, err := c.roundTrip(ctx, OpValidate, gate.Request{Command: command})
	if err != nil {
		return nil, err
	}
	if resp.Validation == nil {
		return nil, errors.New("server response missing validation")
	}
	return resp.Validation, nil
}

// Whitelist fetches the server's active whitelist.
func (c *Client) Whitelist(ctx context.Context) (*gate.WhitelistInfo, error) {
	resp, err := c.roundTrip(ctx, OpWhitelist, gate.Request{})
	if err != nil {
		return nil, err
	}
	if resp.Whitelist == nil {
		return nil, errors.New("server response missing whitelist")
	}
	return resp.Whitelist, nil
}

// roundTrip opens a connection, sends one request and reads one response.
// Cancelling ctx closes the connection.
func (c *Client) roundTrip(ctx context.Context, op string, req gate.Request) (*Response, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cmdgate server (%s): %w", c.socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			clog.Warn("failed to close server connection: %v", err)
		}
	}()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	reqData, err := json.Marshal(Request{Secret: c.secret, Op: op, Request: req})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')

	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respLine, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Socket-level errors (authentication, rate limiting, bad op)
	if !resp.Success {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
