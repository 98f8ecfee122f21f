package gemini

import (
	"errors"
	"fmt"
)

var (
	ErrURLTooLong        = errors.New("url is longer than 1024 bytes")
	ErrMissingHost       = errors.New("url has no host")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrMalformedFraming  = errors.New("no CRLF after status line")
	ErrInvalidStatus     = errors.New("invalid status line")
	ErrTooManyRedirects  = errors.New("too many redirects")
)

// ResolutionError is returned when a location string can't be turned into
// an absolute URL.
type ResolutionError struct {
	Input string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Input, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TransportOp names the transport step that failed.
type TransportOp string

const (
	OpConnect TransportOp = "connect"
	OpTLS     TransportOp = "tls"
)

// TransportError is returned when the TCP connection or the TLS session on
// top of it can't be established.
type TransportError struct {
	Op   TransportOp
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Op == OpTLS {
		return fmt.Sprintf("tls handshake with %s: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("connect to %s: %v", e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CodecOp names the framing step that failed.
type CodecOp string

const (
	OpWrite   CodecOp = "write"
	OpRead    CodecOp = "read"
	OpFraming CodecOp = "framing"
)

// CodecError is returned when the request can't be written or the response
// can't be read or split into a status line and body.
type CodecError struct {
	Op  CodecOp
	Err error
}

func (e *CodecError) Error() string {
	switch e.Op {
	case OpWrite:
		return fmt.Sprintf("write request: %v", e.Err)
	case OpRead:
		return fmt.Sprintf("read response: %v", e.Err)
	}
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// InvalidStatusError holds a status line that couldn't be parsed or whose
// code is out of range.
type InvalidStatusError struct {
	Header string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("InvalidResponse(%q)", e.Header)
}

func (e *InvalidStatusError) Unwrap() error {
	return ErrInvalidStatus
}

// StatusError reports a well-formed response whose status is not a success.
type StatusError struct {
	Header Header
	Err    error
}

func (e *StatusError) Error() string {
	s := fmt.Sprintf("%v(%d, %s)", e.Header.Category(), e.Header.Status, e.Header.Meta)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
