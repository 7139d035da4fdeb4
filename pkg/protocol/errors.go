package protocol

import (
	"errors"
	"fmt"
)

// Error codes used by the boundary itself. Native failures carry whatever code the
// BLE manager produced.
const (
	CodeUnknown              = "Unknown"
	CodeOperationCancelled   = "2"
	CodeClientAlreadyCreated = "1002"
	CodeClientNotCreated     = "1003"
	CodeCannotHandleMethod   = "1004"
	CodeMalformedEvent       = "1005"
)

// Error is a structured rejection delivered outward: a stable code plus a
// human-readable message. Details optionally names the originating operation.
type Error struct {
	Code    string
	Message string
	Details string
}

// NewError returns an Error; an empty code becomes CodeUnknown.
func NewError(code, message string) *Error {
	if code == "" {
		code = CodeUnknown
	}
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of e tagged with details.
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// Is compares Errors by code so sentinel errors below work with errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel rejections raised by the host layer.
var (
	ErrClientAlreadyCreated = &Error{Code: CodeClientAlreadyCreated, Message: "Cannot createClient when one is already existing. Please first call destroyClient."}
	ErrClientNotCreated     = &Error{Code: CodeClientNotCreated, Message: "Client not created. Please first call createClient."}
	ErrOperationCancelled   = &Error{Code: CodeOperationCancelled, Message: "Operation was cancelled"}
)

// CannotHandleMethod is returned for call names the host does not route.
func CannotHandleMethod(method string) *Error {
	return &Error{Code: CodeCannotHandleMethod, Message: "Cannot handle method with name: " + method}
}

// ErrWireFormat is matched by every binary decoding failure.
var ErrWireFormat = errors.New("invalid wire format")
