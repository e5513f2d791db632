package of10

import "errors"

// Protocol errors returned by Decode. Per spec.md section 7, these never
// tear down the surrounding connection; the caller drops the offending
// buffer and continues.
var (
	ErrBadVersion    = errors.New("of10: bad version")
	ErrBadType       = errors.New("of10: bad message type")
	ErrBadLength     = errors.New("of10: bad length")
	ErrTruncated     = errors.New("of10: truncated message")
	ErrBadAlignment  = errors.New("of10: tail length not a multiple of element size")
	ErrUnknownAction = errors.New("of10: unknown action type")
	ErrUnknownReason = errors.New("of10: unknown packet-in/flow-expired reason")
)

// Warnf is called when Decode truncates a message whose header.length is
// shorter than the buffer it arrived in (spec.md section 4.B: "the codec
// truncates to length and logs a warning"). It defaults to a no-op so this
// package never imports a logging library directly; a process wires it to
// its own logger the way the teacher's TCPInfoCollector takes an
// errorLoggingCallback func(error) rather than reaching for a global one.
var Warnf = func(format string, args ...interface{}) {}
