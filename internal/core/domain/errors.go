package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies failures raised by the profile source boundary.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTimeout
	KindNetwork
	KindUnauthorized
	KindNotFound
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Terminal reports whether errors of this kind must never be retried.
func (k ErrorKind) Terminal() bool {
	return k == KindUnauthorized || k == KindNotFound || k == KindMalformed
}

// Transient reports whether errors of this kind are worth retrying.
func (k ErrorKind) Transient() bool {
	return k == KindTimeout || k == KindNetwork
}

// Error is a classified failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError creates a classified error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a classified error with a formatted message.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err. Typed errors win; otherwise well-known
// standard library network and deadline errors are recognised.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return KindNetwork
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}

	return KindUnknown
}
