package rpc

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Version is the only JSON-RPC version accepted.
const Version = "2.0"

// Request is a JSON-RPC request.
type Request struct {
	ID      uint64          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// ErrorObject is the error member of a failed response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorObject) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Response is a JSON-RPC response. Exactly one of Result and Error is set.
type Response struct {
	ID      uint64          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// IsError reports whether the response carries an error.
func (r Response) IsError() bool { return r.Error != nil }

// NewID returns a request id: the current unix time in milliseconds
// multiplied by 1000 plus three random digits.
func NewID() uint64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % 1000)
	}
	return uint64(time.Now().UnixMilli())*1000 + n.Uint64()
}

// NewRequest marshals params into a request with a fresh id.
func NewRequest(method string, params any) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return Request{ID: NewID(), JSONRPC: Version, Method: method, Params: raw}, nil
}

// NewResult builds a success response for id.
func NewResult(id uint64, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("marshal result: %w", err)
	}
	return Response{ID: id, JSONRPC: Version, Result: raw}, nil
}

// NewError builds an error response for id.
func NewError(id uint64, code int, message string) Response {
	return Response{ID: id, JSONRPC: Version, Error: &ErrorObject{Code: code, Message: message}}
}

var (
	// ErrMalformed is returned when a payload is not a valid JSON-RPC message.
	ErrMalformed = errors.New("malformed json-rpc message")
)

// Decode validates raw against the envelope schema and returns either the
// request or the response it contains.
func Decode(raw []byte) (*Request, *Response, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := envelopeSchema().Validate(doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj := doc.(map[string]any)
	if _, ok := obj["method"]; ok {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return &req, nil, nil
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil, &resp, nil
}
