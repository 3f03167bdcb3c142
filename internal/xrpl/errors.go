package xrpl

import (
	"errors"
	"fmt"
	"strings"
)

// FailReason categorizes why a request failed.
type FailReason int

const (
	FailUnknown FailReason = iota
	// FailHandshakeTimeout means the connection never became ready
	// within the handshake budget.
	FailHandshakeTimeout
	// FailRoundTripTimeout means no reply arrived within the overall budget.
	FailRoundTripTimeout
	// FailTransport is a connection-level failure (refused, reset, DNS).
	FailTransport
	// FailMalformedReply means the reply could not be parsed as a
	// structured document.
	FailMalformedReply
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailHandshakeTimeout:
		return "handshake timed out"
	case FailRoundTripTimeout:
		return "no reply within budget"
	case FailTransport:
		return "connection failed"
	case FailMalformedReply:
		return "malformed reply"
	default:
		return "unknown error"
	}
}

// Error is a categorized request failure against one host:port.
type Error struct {
	Host   string
	Port   int
	Reason FailReason
	Cause  error
}

func (e *Error) Error() string {
	where := ""
	if e.Host != "" {
		where = fmt.Sprintf("%s:%d: ", e.Host, e.Port)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s%s (%v)", where, e.Reason, e.Cause)
	}
	return where + e.Reason.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a handshake or round-trip timeout.
func IsTimeout(err error) bool {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Reason == FailHandshakeTimeout || xe.Reason == FailRoundTripTimeout
	}
	return false
}

// AllPortsExhaustedError means every candidate port failed.
// Last holds the error from the final attempt.
type AllPortsExhaustedError struct {
	Host  string
	Ports []int
	Last  error
}

func (e *AllPortsExhaustedError) Error() string {
	ports := make([]string, len(e.Ports))
	for i, p := range e.Ports {
		ports[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("%s: all candidate ports failed [%s]: %v", e.Host, strings.Join(ports, ", "), e.Last)
}

func (e *AllPortsExhaustedError) Unwrap() error {
	return e.Last
}
