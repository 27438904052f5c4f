// Package jsonx provides JSON serialization for the service using Sonic,
// a drop-in replacement for encoding/json on the request/response hot path.
package jsonx

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// Marshal returns the JSON encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal parses JSON-encoded data into the value pointed to by v.
func Unmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

// MarshalToString is like Marshal but returns a string, avoiding the
// []byte->string copy.
func MarshalToString(v interface{}) (string, error) {
	return sonic.MarshalString(v)
}

// UnmarshalFromString parses the JSON string into v.
func UnmarshalFromString(data string, v interface{}) error {
	return sonic.UnmarshalString(data, v)
}

// Valid reports whether data is valid JSON.
func Valid(data []byte) bool {
	return sonic.Valid(data)
}

// DecodeLimit reads at most max bytes from r and unmarshals them into v.
// Request bodies are bounded so a client cannot hold a handler goroutine
// on an unbounded read.
func DecodeLimit(r io.Reader, max int64, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > max {
		return fmt.Errorf("body exceeds %d bytes", max)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty body")
	}
	return sonic.Unmarshal(data, v)
}
