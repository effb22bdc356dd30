package fanout

import "errors"

// Kind classifies an error by how a caller should react to it, mirroring
// the handful of recoverable-vs-terminal distinctions the core actually
// needs to make; it deliberately is not a type hierarchy.
type Kind int

const (
	InvalidParam Kind = iota
	BufferTooSmall
	DimensionsCorrupt
	QueueFull
	QueueShutdown
	TransportClosed
	TransportIo
	EncoderFail
	ResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case InvalidParam:
		return "invalid_param"
	case BufferTooSmall:
		return "buffer_too_small"
	case DimensionsCorrupt:
		return "dimensions_corrupt"
	case QueueFull:
		return "queue_full"
	case QueueShutdown:
		return "queue_shutdown"
	case TransportClosed:
		return "transport_closed"
	case TransportIo:
		return "transport_io"
	case EncoderFail:
		return "encoder_fail"
	case ResourceExhausted:
		return "resource_exhausted"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with context, so a caller can classify a failure with
// KindOf rather than by comparing sentinel values. The worker loops in this
// package do not construct or inspect Error values; they log and continue.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
