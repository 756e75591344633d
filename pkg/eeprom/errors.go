package eeprom

import (
	"errors"
	"fmt"
)

// DecodeKind tells apart the reasons a module degrades to unrecognized.
type DecodeKind int

const (
	// Malformed covers short, unreadable or structurally invalid images.
	Malformed DecodeKind = iota
	// UnknownConnector is a valid image whose compliance codes are not in the table.
	UnknownConnector
)

func (k DecodeKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case UnknownConnector:
		return "unknown connector"
	default:
		return fmt.Sprintf("DecodeKind(%d)", int(k))
	}
}

// DecodeError is returned for every image that cannot be classified.
type DecodeError struct {
	Kind   DecodeKind
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: Malformed, Reason: fmt.Sprintf(format, args...)}
}

// NewMalformed wraps a read failure so it degrades like a corrupted image.
func NewMalformed(reason string, err error) *DecodeError {
	return &DecodeError{Kind: Malformed, Reason: reason, Err: err}
}

// NewUnknownConnector reports a structurally valid image with unlisted codes.
func NewUnknownConnector(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: UnknownConnector, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the DecodeKind carried by err, or Malformed when err is some other
// failure.
func KindOf(err error) DecodeKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return Malformed
}
