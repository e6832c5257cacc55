// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gerrors defines the error taxonomy shared by the graph core.
//
// Stop is not an error: calculators return it to request closure, and it
// must never be recorded as a graph error.
package gerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code classifies a Status the way the scheduler and graph façade reason
// about failures.
type Code int

const (
	OK Code = iota
	InvalidArgument
	FailedPrecondition
	NotFound
	AlreadyExists
	Unavailable
	OutOfRange
	Cancelled
	Internal
	// Stop is the sentinel a calculator or packet generator returns from
	// Process to request its own closure. It is never surfaced as an error.
	Stop
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case InvalidArgument:
		return "InvalidArgument"
	case FailedPrecondition:
		return "FailedPrecondition"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Unavailable:
		return "Unavailable"
	case OutOfRange:
		return "OutOfRange"
	case Cancelled:
		return "Cancelled"
	case Internal:
		return "Internal"
	case Stop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Status is the single result type used across the core instead of mixing
// exceptions with control flow.
type Status struct {
	code    Code
	message string
	cause   error
}

func (s *Status) Error() string {
	if s == nil {
		return "OK"
	}
	if s.cause != nil {
		return fmt.Sprintf("%s: %s: %v", s.code, s.message, s.cause)
	}
	return fmt.Sprintf("%s: %s", s.code, s.message)
}

// Code returns the status code, or OK for a nil Status.
func (s *Status) Code() Code {
	if s == nil {
		return OK
	}
	return s.code
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As.
func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return s.cause
}

// IsStop reports whether err is the Stop sentinel.
func IsStop(err error) bool {
	var st *Status
	return errors.As(err, &st) && st.code == Stop
}

// IsCancelled reports whether err is the Cancelled sentinel.
func IsCancelled(err error) bool {
	var st *Status
	return errors.As(err, &st) && st.code == Cancelled
}

func newf(code Code, format string, args ...any) *Status {
	return &Status{code: code, message: fmt.Sprintf(format, args...)}
}

func StopStatus() *Status { return &Status{code: Stop, message: "stop"} }

func CancelledStatus(message string) *Status {
	return &Status{code: Cancelled, message: message}
}

func InvalidArgumentf(format string, args ...any) *Status {
	return newf(InvalidArgument, format, args...)
}

func FailedPreconditionf(format string, args ...any) *Status {
	return newf(FailedPrecondition, format, args...)
}

func NotFoundf(format string, args ...any) *Status {
	return newf(NotFound, format, args...)
}

func AlreadyExistsf(format string, args ...any) *Status {
	return newf(AlreadyExists, format, args...)
}

func Unavailablef(format string, args ...any) *Status {
	return newf(Unavailable, format, args...)
}

func OutOfRangef(format string, args ...any) *Status {
	return newf(OutOfRange, format, args...)
}

func Internalf(format string, args ...any) *Status {
	return newf(Internal, format, args...)
}

// Wrap attaches cause to a new Internal status carrying a stack via
// github.com/pkg/errors, unless cause is already a *Status in which case it
// is returned unchanged.
func Wrap(cause error, message string) *Status {
	if cause == nil {
		return nil
	}
	var st *Status
	if errors.As(cause, &st) {
		return st
	}
	return &Status{code: Internal, message: message, cause: errors.WithStack(cause)}
}
