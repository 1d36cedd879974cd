// Package jsonrpc implements the JSON-RPC 2.0 framing shared by the HTTP and
// stdio transports. Only single requests are supported; batches are rejected.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC response. ID is encoded as null when the
// request id could not be determined.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// ParseRequest decodes a single JSON-RPC request. On failure it returns the
// protocol error to report and, when it could be recovered, the request id.
func ParseRequest(data []byte) (*Request, *RequestID, *Error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, NewError(ErrorCodeInvalidRequest, "empty request")
	}
	if trimmed[0] == '[' {
		if !json.Valid(trimmed) {
			return nil, nil, NewError(ErrorCodeParseError, "parse error")
		}
		return nil, nil, NewError(ErrorCodeInvalidRequest, "batch requests are not supported")
	}

	var raw struct {
		JSONRPCVersion string          `json:"jsonrpc"`
		Method         *string         `json:"method"`
		Params         json.RawMessage `json:"params"`
		ID             json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		if !json.Valid(trimmed) {
			return nil, nil, NewError(ErrorCodeParseError, "parse error")
		}
		return nil, nil, NewError(ErrorCodeInvalidRequest, "request must be a JSON-RPC request object")
	}

	var id *RequestID
	if len(raw.ID) > 0 && !bytes.Equal(raw.ID, []byte("null")) {
		id = new(RequestID)
		if err := id.UnmarshalJSON(raw.ID); err != nil {
			return nil, nil, NewError(ErrorCodeInvalidRequest, err.Error())
		}
	}

	if raw.JSONRPCVersion != ProtocolVersion {
		return nil, id, NewError(ErrorCodeInvalidRequest,
			fmt.Sprintf("invalid JSON-RPC version: expected %q, got %q", ProtocolVersion, raw.JSONRPCVersion))
	}
	if raw.Method == nil || *raw.Method == "" {
		return nil, id, NewError(ErrorCodeInvalidRequest, "request is missing a method")
	}
	if len(raw.Params) > 0 {
		switch bytes.TrimSpace(raw.Params)[0] {
		case '{', '[', 'n':
		default:
			return nil, id, NewError(ErrorCodeInvalidRequest, "params must be an object or array")
		}
	}

	return &Request{
		JSONRPCVersion: raw.JSONRPCVersion,
		Method:         *raw.Method,
		Params:         raw.Params,
		ID:             id,
	}, id, nil
}
