// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"errors"
	"fmt"
)

// Code is a driver result code. The values match the codes the sensor
// and earlier drivers report, so they can travel over a bridge unchanged.
type Code uint8

// Result codes
const (
	CodeOK                       Code = 0x00
	CodeDataLength               Code = 0x01
	CodeUnknownCommand           Code = 0x02
	CodeAccessRight              Code = 0x03
	CodeInvalidParameter         Code = 0x04
	CodeOutOfRange               Code = 0x28
	CodeCommandNotAllowedInState Code = 0x43
	CodeTimeout                  Code = 0x50
	CodeProtocol                 Code = 0x51
	CodeFirmwareTooOld           Code = 0x88
)

// String returns the human readable description of the code
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "All good"
	case CodeDataLength:
		return "Wrong data length for this command (too much or little data)"
	case CodeUnknownCommand:
		return "Unknown command"
	case CodeAccessRight:
		return "No access right for command"
	case CodeInvalidParameter:
		return "Illegal command parameter or parameter out of allowed range"
	case CodeOutOfRange:
		return "Internal function argument out of range"
	case CodeCommandNotAllowedInState:
		return "Command not allowed in current state"
	case CodeTimeout:
		return "No response received within timeout period"
	case CodeProtocol:
		return "Protocol error"
	case CodeFirmwareTooOld:
		return "Not supported on this SEN6x firmware level"
	default:
		return fmt.Sprintf("Unknown error (0x%02X)", uint8(c))
	}
}

// Error is returned by every Device operation that fails
type Error struct {
	Code Code
	Op   string // operation or command name, may be empty
	Err  error  // underlying cause, may be nil
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the sentinels below
// work with errors.Is regardless of Op and Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors for errors.Is
var (
	ErrDataLength               = &Error{Code: CodeDataLength}
	ErrUnknownCommand           = &Error{Code: CodeUnknownCommand}
	ErrAccessRight              = &Error{Code: CodeAccessRight}
	ErrInvalidParameter         = &Error{Code: CodeInvalidParameter}
	ErrOutOfRange               = &Error{Code: CodeOutOfRange}
	ErrCommandNotAllowedInState = &Error{Code: CodeCommandNotAllowedInState}
	ErrTimeout                  = &Error{Code: CodeTimeout}
	ErrProtocol                 = &Error{Code: CodeProtocol}
	ErrFirmwareTooOld           = &Error{Code: CodeFirmwareTooOld}
)

// CodeOf extracts the result code from err. nil maps to CodeOK and
// errors that carry no code map to CodeProtocol.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeProtocol
}

func newError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func errorf(code Code, op, format string, args ...interface{}) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// busError keeps a code carried by a transport error and otherwise
// reports the failure as a protocol error.
func busError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return newError(e.Code, op, err)
	}
	return newError(CodeProtocol, op, err)
}
