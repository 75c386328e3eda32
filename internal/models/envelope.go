package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a body is not a Neptune JSON envelope.
var ErrMalformedResponse = errors.New("malformed response")

// Envelope is the common {success, msg, obj} shape of every Neptune response.
type Envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// DecodeEnvelope parses a raw body. HTTP status is only used for the error text.
func DecodeEnvelope(status int, body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrMalformedResponse, status, err)
	}
	return &env, nil
}

// HasObj reports whether obj is present and not null.
func (e *Envelope) HasObj() bool {
	trimmed := bytes.TrimSpace(e.Obj)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeObj unmarshals obj into dst.
func (e *Envelope) DecodeObj(dst any) error {
	if !e.HasObj() {
		return fmt.Errorf("%w: obj is empty", ErrMalformedResponse)
	}
	if err := json.Unmarshal(e.Obj, dst); err != nil {
		return fmt.Errorf("%w: decode obj: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Token returns obj as a correlation token: a JSON string or number, otherwise "".
func (e *Envelope) Token() string {
	if !e.HasObj() {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Obj, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(e.Obj))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return ""
}
