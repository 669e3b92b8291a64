// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/bureau-foundation/hearth/lib/codec"
)

// maxResponseSize bounds a single response envelope.
const maxResponseSize = 1024 * 1024

// aLongTimeAgo is a deadline in the past, used to abort blocked socket
// I/O when a call's context ends.
var aLongTimeAgo = time.Unix(1, 0)

// ServiceError is returned when the backend answers ok=false.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("backend error on %q: %s", e.Action, e.Message)
}

// unknownActionPrefix begins the error text a Server sends for an
// action it has no handler for.
const unknownActionPrefix = "unknown action"

// IsUnknownAction reports whether err is the backend rejecting an
// action name it does not implement.
func IsUnknownAction(err error) bool {
	var serviceError *ServiceError
	return errors.As(err, &serviceError) && strings.HasPrefix(serviceError.Message, unknownActionPrefix)
}

// Client sends requests to one backend socket. Each Call opens and
// closes its own connection.
type Client struct {
	network string
	address string
	token   string
}

// NewClient returns a client for the socket at address. An empty token
// sends anonymous requests.
func NewClient(address, token string) *Client {
	return &Client{network: "unix", address: address, token: token}
}

// Call sends action with fields and decodes the response data into
// result when both are non-nil. The caller must not put "action" or
// "token" in fields.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	response, err := c.send(ctx, c.buildRequest(action, fields))
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.address, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *Client) buildRequest(action string, fields map[string]any) map[string]any {
	request := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action
	if c.token != "" {
		request["token"] = c.token
	}
	return request
}

func (c *Client) send(ctx context.Context, request map[string]any) (*Response, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(aLongTimeAgo)
	})
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		_ = unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("reading response: %w", ctx.Err())
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
