package canport

import (
	"errors"
	"fmt"
	"strings"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var ue unrecoverableError
	return !errors.As(err, &ue)
}

var (
	ErrNilAdapter            = errors.New("adapter is nil")
	ErrNilFrame              = errors.New("frame is nil")
	ErrDroppedFrame          = errors.New("adapter incoming channel full")
	ErrSendTimeout           = errors.New("timeout sending frame")
	ErrResponsechannelClosed = errors.New("response channel closed")
	ErrAdapterClosed         = errors.New("adapter closed")
	ErrCommandError          = errors.New("adapter rejected command")

	ErrIdentifierRange = errors.New("identifier out of range")
	ErrDataLength      = errors.New("data length out of range")

	ErrUnsupportedRate = errors.New("unsupported bit rate")
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrTruncatedFrame  = errors.New("truncated frame")
	ErrInvalidHex      = errors.New("invalid hex")
)

// UnsupportedRateError is returned for a bit rate outside the set the
// adapter firmware knows a command for.
type UnsupportedRateError struct {
	Rate int
}

func (e *UnsupportedRateError) Error() string {
	return fmt.Sprintf("unsupported bit rate: %d", e.Rate)
}

func (e *UnsupportedRateError) Is(target error) bool {
	return target == ErrUnsupportedRate
}

// MalformedFrameError is a terminated line that is not a frame: unknown
// marker, dlc above eight, trailing characters or an overlong line. Text is
// the raw line without the terminator.
type MalformedFrameError struct {
	Text   string
	Reason string
}

func (e *MalformedFrameError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("malformed frame %q", e.Text)
	}
	return fmt.Sprintf("malformed frame %q: %s", e.Text, e.Reason)
}

func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

// TruncatedFrameError is a line shorter than the length its own header implies.
type TruncatedFrameError struct {
	Text string
	Want int
	Got  int
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("truncated frame %q: want %d characters, got %d", e.Text, e.Want, e.Got)
}

func (e *TruncatedFrameError) Is(target error) bool {
	return target == ErrTruncatedFrame
}

// InvalidHexError is a non hexadecimal character in one of the numeric fields.
type InvalidHexError struct {
	Field string
	Text  string
}

func (e *InvalidHexError) Error() string {
	return fmt.Sprintf("invalid hex in %s: %q", e.Field, e.Text)
}

func (e *InvalidHexError) Is(target error) bool {
	return target == ErrInvalidHex
}

type TimeoutError struct {
	Timeout int64
	Frames  []uint32
}

func (e *TimeoutError) Error() string {
	ids := make([]string, len(e.Frames))
	for i, id := range e.Frames {
		ids[i] = fmt.Sprintf("0x%03X", id)
	}
	return fmt.Sprintf("timeout (%dms) waiting for frame %s", e.Timeout, strings.Join(ids, ", "))
}
