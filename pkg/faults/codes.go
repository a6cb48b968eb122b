// Package faults contains the fatal configuration faults and the process exit codes they map to.
package faults

import (
	"errors"
	"fmt"
)

// Code is a process exit code. The numeric values are part of the CLI contract and must not be reordered.
type Code int

const (
	// None means the invocation finished without a fault.
	None Code = iota
	// FileNotFound is returned when the manifest does not exist.
	FileNotFound
	// OutputNotFound is returned when an assembled configuration has no output descriptor.
	OutputNotFound
	// CannotSetBothDevelopmentAndProduction is returned when both mode flags are present in the environment.
	CannotSetBothDevelopmentAndProduction
	// UnknownFormat is returned for format tags missing from the policy table.
	UnknownFormat
	// TsconfigNotFound is returned when none of the tsconfig candidates exist.
	TsconfigNotFound
	// ManifestInvalid is returned when the manifest could not be evaluated.
	ManifestInvalid
	// BuildFailed covers every error that isn't a configuration fault.
	BuildFailed
)

var codeNames = map[Code]string{
	None:                                  "none",
	FileNotFound:                          "file not found",
	OutputNotFound:                        "output not found",
	CannotSetBothDevelopmentAndProduction: "cannot set both development and production",
	UnknownFormat:                         "unknown format",
	TsconfigNotFound:                      "tsconfig not found",
	ManifestInvalid:                       "manifest invalid",
	BuildFailed:                           "build failed",
}

func (c Code) String() string {
	name, ok := codeNames[c]
	if !ok {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return name
}

// Fault is a fatal configuration fault. It is returned up to the CLI boundary which logs it and exits
// with Code.
type Fault struct {
	Code  Code
	msg   string
	cause error
}

// New creates a fault with a formatted message
func New(code Code, format string, args ...interface{}) *Fault {
	return &Fault{Code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault which keeps err as its cause
func Wrap(code Code, err error, format string, args ...interface{}) *Fault {
	return &Fault{Code: code, msg: fmt.Sprintf(format, args...), cause: err}
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return f.msg + ": " + f.cause.Error()
	}
	return f.msg
}

// Message returns the human-readable message without the cause
func (f *Fault) Message() string {
	return f.msg
}

func (f *Fault) Unwrap() error {
	return f.cause
}

// CodeOf returns the exit code for err. nil maps to None and errors which don't carry a Fault map to
// BuildFailed.
func CodeOf(err error) Code {
	if err == nil {
		return None
	}

	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Code
	}

	return BuildFailed
}

// Is reports whether err carries a fault with the given code
func Is(err error, code Code) bool {
	var fault *Fault
	return errors.As(err, &fault) && fault.Code == code
}
