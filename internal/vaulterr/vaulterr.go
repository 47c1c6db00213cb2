// Package vaulterr defines the error taxonomy shared by every layer of
// the server. Errors carry a stable code, a human message, and an
// optional metadata map that travels to the MCP client.
package vaulterr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code identifies an error class.
type Code string

const (
	FileNotFound       Code = "FILE_NOT_FOUND"
	FileReadError      Code = "FILE_READ_ERROR"
	FileWriteError     Code = "FILE_WRITE_ERROR"
	InvalidFilePath    Code = "INVALID_FILE_PATH"
	InvalidFrontMatter Code = "INVALID_FRONT_MATTER"
	InvalidUID         Code = "INVALID_UID"
	SchemaValidation   Code = "SCHEMA_VALIDATION_ERROR"
	IndexBuildError    Code = "INDEX_BUILD_ERROR"
	IndexQueryError    Code = "INDEX_QUERY_ERROR"
	IndexCorrupted     Code = "INDEX_CORRUPTED"
	MCPProtocolError   Code = "MCP_PROTOCOL_ERROR"
	MCPToolError       Code = "MCP_TOOL_ERROR"
	MCPInvalidRequest  Code = "MCP_INVALID_REQUEST"
	ResourceNotFound   Code = "RESOURCE_NOT_FOUND"
	StorageError       Code = "STORAGE_ERROR"
	ConfigError        Code = "CONFIG_ERROR"
	VaultPathError     Code = "VAULT_PATH_ERROR"
	Internal           Code = "INTERNAL_ERROR"
	Timeout            Code = "TIMEOUT_ERROR"
	Network            Code = "NETWORK_ERROR"
)

// Error is the server's structured error type.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]any
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// MarshalJSON renders the error for transport: name, code, message, metadata.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"name":     "VaultError",
		"code":     string(e.Code),
		"message":  e.Message,
		"metadata": e.Metadata,
	})
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithMeta attaches a metadata entry and returns the same error.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf extracts the code from err, unwrapping as needed.
// Returns INTERNAL_ERROR for untyped errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return Internal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
