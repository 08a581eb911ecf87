package scrawl

import "errors"

var (
	// ErrInvalidState is returned when an operation is attempted in a session
	// state that forbids it, e.g. drawing while not recording.
	ErrInvalidState = errors.New("operation not allowed in the current state")
	// ErrInvalidTransition is returned when a state transition is requested
	// from a state that has no such transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	ErrOutOfOrderSample = errors.New("sample offset precedes the previous sample")
	ErrOverlap          = errors.New("audio chunk overlaps recorded audio")
	ErrInvalidRange     = errors.New("invalid time range")

	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrBufferOverrun reports that captured audio was dropped because the
	// capture queue was full. Recording continues with a gap.
	ErrBufferOverrun = errors.New("audio capture buffer overrun")

	ErrUnknownStroke      = errors.New("unknown stroke")
	ErrStrokeClosed       = errors.New("stroke is not open")
	ErrUnknownMarker      = errors.New("unknown marker")
	ErrInvalidRate        = errors.New("invalid rate")
	ErrUnsupportedVersion = errors.New("unsupported save file version")
)
