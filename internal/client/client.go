// Package client is a JSON-RPC client for the lost and found API. It
// implements the feed gateway so the feed core can run remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/pkg/config"
	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

// Server error codes
const (
	codeInvalidParams = -32602
	codeAuthRequired  = -32001
	codeNotFound      = -32004
)

const defaultTimeout = 15 * time.Second

// RPCError is an error response the client has no typed mapping for
type RPCError struct {
	Code    int
	Message string
	Data    string
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

// Client calls the API over HTTP
type Client struct {
	http   *resty.Client
	nextID atomic.Int64
	logger *zap.Logger
}

var (
	_ feed.BatchGateway = (*Client)(nil)
	_ feed.ViewerSource = (*Client)(nil)
)

// New creates a client for cfg.APIURL authenticating with cfg.Token
func New(cfg *config.ClientConfig) *Client {
	c := &Client{
		http:   resty.New(),
		logger: logging.WithComponent("client"),
	}

	c.http.SetBaseURL(cfg.APIURL)
	c.http.SetTimeout(defaultTimeout)
	c.http.SetHeader("User-Agent", "lostfound-cli/"+telemetry.Version)
	if cfg.Token != "" {
		c.http.SetAuthToken(cfg.Token)
	}

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if body, ok := req.Body.(rpcRequest); ok {
			c.logger.Debug("RPC request", zap.String("method", body.Method))
		}
		return nil
	})

	return c
}

// call invokes method and decodes its result into result. A null result
// leaves result untouched.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	var body rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post("/")
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%s: token rejected: %w", method, feed.ErrAuthRequired)
	}
	if resp.IsError() {
		return &RPCError{Code: resp.StatusCode(), Message: http.StatusText(resp.StatusCode()), Data: string(resp.Body())}
	}

	if body.Error != nil {
		return decodeError(body.Error.Code, body.Error.Message, body.Error.Data)
	}
	if result == nil || len(body.Result) == 0 || bytes.Equal(body.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(body.Result, result); err != nil {
		return fmt.Errorf("%s: failed to decode result: %w", method, err)
	}
	return nil
}

// decodeError maps a server error back onto the feed error taxonomy
func decodeError(code int, message string, data json.RawMessage) error {
	switch code {
	case codeAuthRequired:
		return feed.ErrAuthRequired
	case codeNotFound:
		return feed.ErrListingNotFound
	case codeInvalidParams:
		var v struct {
			Field   string `json:"field"`
			Reason  string `json:"reason"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &v); err == nil && v.Field != "" {
			return feed.NewValidationError(v.Field, v.Reason, v.Message)
		}
	}

	rpcErr := &RPCError{Code: code, Message: message}
	var detail string
	if err := json.Unmarshal(data, &detail); err == nil {
		rpcErr.Data = detail
	} else if len(data) > 0 {
		rpcErr.Data = string(data)
	}
	return rpcErr
}

// IsRPCError reports whether err is an untyped server error with code
func IsRPCError(err error, code int) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}
