package dgram

import "fmt"

// Code is the protocol engine's error taxonomy: a typed negative integer
// mirroring the wire-level err_num values, wrapped so callers that want
// the exact code can unwrap while everyone else just sees a normal error.
type Code int32

const (
	NoError           Code = 0
	ErrGeneral        Code = -1
	ErrProtocol       Code = -2
	ErrBuffUndersized Code = -4
	ErrBuffOversized  Code = -8
	ErrConnClosed     Code = -16
	ErrBadDatagram    Code = -32
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "no error"
	case ErrGeneral:
		return "general error"
	case ErrProtocol:
		return "protocol error"
	case ErrBuffUndersized:
		return "buffer undersized"
	case ErrBuffOversized:
		return "buffer oversized"
	case ErrConnClosed:
		return "connection closed"
	case ErrBadDatagram:
		return "bad datagram"
	default:
		return fmt.Sprintf("unknown error code %d", int32(c))
	}
}

// Error adapts a Code to the standard error interface.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return "dgram: " + e.Code.String()
}

// codeErr wraps a Code as an error. Callers that need the raw code back
// use CodeOf, or errors.As with a *dgram.Error target variable.
func codeErr(c Code) error {
	if c == NoError {
		return nil
	}
	return &Error{Code: c}
}

// CodeOf extracts the Code carried by err: NoError if err is nil,
// ErrGeneral if err is not a *Error.
func CodeOf(err error) Code {
	if err == nil {
		return NoError
	}
	if de, ok := err.(*Error); ok {
		return de.Code
	}
	return ErrGeneral
}
