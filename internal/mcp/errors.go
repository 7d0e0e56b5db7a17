package mcp

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/vortex-catalog/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters or failed validation
	ErrorCodeInternalError      = -32603 // Persistence or unexpected failure
	ErrorCodeNotFound           = -32001 // Referenced product, order, movement or contact is missing
	ErrorCodeConflict           = -32009 // State forbids the operation
	ErrorCodePartialApplication = -32010 // Multi-step mutation failed midway
)

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// invalidParam reports a missing or malformed tool argument
func invalidParam(param, reason string) error {
	return newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("invalid %s: %s", param, reason), map[string]interface{}{
		"kind":   string(types.KindValidation),
		"param":  param,
		"reason": reason,
	})
}

var kindCodes = map[types.ErrorKind]int{
	types.KindValidation:  ErrorCodeInvalidParams,
	types.KindNotFound:    ErrorCodeNotFound,
	types.KindConflict:    ErrorCodeConflict,
	types.KindPartial:     ErrorCodePartialApplication,
	types.KindPersistence: ErrorCodeInternalError,
}

// toMCPError maps a core error onto an MCP error. The data carries the
// error kind plus whatever structured fields the error holds.
func toMCPError(err error) error {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	kind := types.KindOf(err)
	data := map[string]interface{}{"kind": string(kind)}

	var coreErr *types.Error
	if errors.As(err, &coreErr) {
		for k, v := range coreErr.Fields {
			data[k] = v
		}
	}

	var stockErr *types.InsufficientStockError
	if errors.As(err, &stockErr) {
		data["product_id"] = stockErr.ProductID
		data["product_name"] = stockErr.ProductName
		data["requested"] = stockErr.Requested
		data["available"] = stockErr.Available
	}

	var transitionErr *types.TransitionError
	if errors.As(err, &transitionErr) {
		allowed := make([]string, len(transitionErr.Allowed))
		for i, s := range transitionErr.Allowed {
			allowed[i] = string(s)
		}
		data["from"] = string(transitionErr.From)
		data["to"] = string(transitionErr.To)
		data["allowed"] = allowed
	}

	var partial *types.PartialApplicationError
	if errors.As(err, &partial) {
		data["movement_id"] = partial.MovementID
		data["product_id"] = partial.ProductID
		data["step"] = partial.Step
		data["reverted"] = partial.Reverted
	}

	code, ok := kindCodes[kind]
	if !ok {
		code = ErrorCodeInternalError
	}
	return newMCPError(code, err.Error(), data)
}

// toolError renders err as a tool result flagged isError. The JSON body
// carries the code, message and data so clients get the error kind and its
// fields instead of a bare JSON-RPC internal error.
func toolError(err error) *mcp.CallToolResult {
	var mcpErr *MCPError
	if !errors.As(err, &mcpErr) {
		errors.As(toMCPError(err), &mcpErr)
	}

	body := map[string]interface{}{
		"code":    mcpErr.Code,
		"message": mcpErr.Message,
	}
	if mcpErr.Data != nil {
		body["data"] = mcpErr.Data
	}
	envelope := map[string]interface{}{"error": body}

	result := mcp.NewToolResultError(formatJSON(envelope))
	result.StructuredContent = envelope
	return result
}
