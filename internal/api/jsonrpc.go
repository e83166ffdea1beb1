package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/api/params"
	"github.com/lostfound/community/internal/feed"
	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationData is the error data attached to rejected input
type ValidationData struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// MethodHandler is a function that handles a JSON-RPC method
type MethodHandler func(ctx *gin.Context, params json.RawMessage) (interface{}, error)

// JSONRPCHandler handles JSON-RPC requests
type JSONRPCHandler struct {
	methods map[string]MethodHandler
	logger  *zap.Logger
}

// NewJSONRPCHandler creates a new JSON-RPC handler
func NewJSONRPCHandler() *JSONRPCHandler {
	return &JSONRPCHandler{
		methods: make(map[string]MethodHandler),
		logger:  logging.WithComponent("jsonrpc"),
	}
}

// RegisterMethod registers a method handler
func (h *JSONRPCHandler) RegisterMethod(method string, handler MethodHandler) {
	h.methods[method] = handler
}

// Methods returns the number of registered methods
func (h *JSONRPCHandler) Methods() int {
	return len(h.methods)
}

// Handle handles a JSON-RPC request
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "jsonrpc.handle")
	c.Request = c.Request.WithContext(ctx)

	var req JSONRPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.EndSpan(span, err)
		h.sendError(c, nil, NewError(ErrParseError, "Parse error", err))
		return
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method))

	// Validate JSON-RPC version
	if req.JSONRPC != "2.0" {
		err := NewError(ErrInvalidRequest, "Invalid Request", fmt.Errorf("invalid jsonrpc version"))
		telemetry.EndSpan(span, err)
		h.sendError(c, req.ID, err)
		return
	}

	handler, ok := h.methods[req.Method]
	if !ok {
		err := NewError(ErrMethodNotFound, "Method not found", fmt.Errorf("method %s not found", req.Method))
		telemetry.EndSpan(span, err)
		h.sendError(c, req.ID, err)
		return
	}

	result, err := handler(c, req.Params)
	telemetry.EndSpan(span, err)
	if err != nil {
		h.sendError(c, req.ID, err)
		return
	}

	h.sendResponse(c, req.ID, result)
}

// classify maps an error returned by a method to its JSON-RPC code
func classify(err error) (int, string) {
	var apiErr *Error
	var pErr *params.Error
	var vErr *feed.ValidationError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.As(err, &pErr), errors.As(err, &vErr):
		return ErrInvalidParams, "Invalid params"
	case errors.Is(err, feed.ErrAuthRequired):
		return ErrAuthRequired, "Authentication required"
	case errors.Is(err, feed.ErrListingNotFound):
		return ErrNotFound, "Not found"
	default:
		return ErrServerError, "Server error"
	}
}

// sendResponse sends a successful JSON-RPC response
func (h *JSONRPCHandler) sendResponse(c *gin.Context, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	c.JSON(http.StatusOK, resp)
}

// sendError sends an error JSON-RPC response
func (h *JSONRPCHandler) sendError(c *gin.Context, id interface{}, err error) {
	code, message := classify(err)
	if code == ErrServerError || code == ErrInternalError {
		h.logger.Error("JSON-RPC error", zap.String("message", message), zap.Error(err))
	} else {
		h.logger.Debug("JSON-RPC request rejected", zap.Int("code", code), zap.Error(err))
	}

	var data interface{} = err.Error()
	var apiErr *Error
	var vErr *feed.ValidationError
	switch {
	case errors.As(err, &vErr):
		data = ValidationData{Field: vErr.Field, Reason: vErr.Reason, Message: vErr.Error()}
	case errors.As(err, &apiErr) && apiErr.Err != nil:
		data = apiErr.Err.Error()
	}

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	c.JSON(http.StatusOK, resp)
}

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
)

// Application error codes
const (
	ErrServerError  = -32000
	ErrAuthRequired = -32001
	ErrNotFound     = -32004
)
