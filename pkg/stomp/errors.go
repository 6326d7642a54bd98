// Package stomp implements an incremental decoder for a text-oriented
// wire framing protocol: command line, header lines, blank line, NUL
// terminated (or content-length bounded) body.
package stomp

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned when the decoder has consumed everything
// available in the working buffer but the current frame is not yet
// complete. It is not a failure: callers should feed more bytes and call
// Decode again. All partial state survives across this return.
var ErrIncomplete = errors.New("stomp: frame incomplete")

// ErrInvalidCommand is returned when the first byte of a new frame does
// not dispatch to any known command.
var ErrInvalidCommand = errors.New("stomp: invalid command")

// ErrTwoCarriageReturns is returned when two consecutive '\r' bytes are
// seen while skipping leading end-of-line bytes.
var ErrTwoCarriageReturns = errors.New("stomp: two consecutive carriage returns")

// ErrBadCarriageReturns is returned when a '\r' is found in a position
// this decoder does not accept outside of the version-negotiation case
// handled by InvalidEndOfLineError.
var ErrBadCarriageReturns = errors.New("stomp: unexpected carriage return")

// InvalidEndOfLineError signals that the decoder saw an end-of-line
// sequence it does not support (this decoder only accepts a lone '\n';
// CRLF is version 1.1+). It carries the offending byte and the version
// of the decoder that rejected it, so a caller holding a pool of
// version-specific decoders can pick a different one and retry.
type InvalidEndOfLineError struct {
	Version string
	Byte    byte
}

func (e *InvalidEndOfLineError) Error() string {
	return fmt.Sprintf("stomp: invalid end-of-line for version %s, offending byte %#x", e.Version, e.Byte)
}
