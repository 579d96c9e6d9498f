package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is the sentinel matched by every FormatError.
var ErrFormat = errors.New("miniSEED format error")

// FormatError reports malformed or corrupt input, an integrity check failure
// or an unsupported encoding request.
type FormatError struct {
	// Op is the codec operation, e.g. "decode" or "encode".
	Op string
	// Offset is the byte offset of the record in its source, -1 if unknown.
	Offset int64
	// Reason is a human readable description.
	Reason string
	// Diagnostics holds the messages drained from the caller's collector.
	Diagnostics []string

	cause error
}

func (e *FormatError) Error() string {
	var sb strings.Builder
	sb.WriteString("mseed: ")
	sb.WriteString(e.Op)
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	if len(e.Diagnostics) > 0 {
		sb.WriteString(" :: ")
		sb.WriteString(strings.Join(e.Diagnostics, "; "))
	}
	return sb.String()
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Unwrap returns the underlying cause, if any.
func (e *FormatError) Unwrap() error { return e.cause }

func formatErrorf(op string, diag *Diagnostics, format string, args ...any) *FormatError {
	return &FormatError{
		Op:          op,
		Offset:      -1,
		Reason:      fmt.Sprintf(format, args...),
		Diagnostics: diag.Pop(),
	}
}

func wrapFormatError(op string, diag *Diagnostics, cause error, reason string) *FormatError {
	return &FormatError{
		Op:          op,
		Offset:      -1,
		Reason:      fmt.Sprintf("%s: %v", reason, cause),
		Diagnostics: diag.Pop(),
		cause:       cause,
	}
}

// WithOffset returns err with its offset set when err is a FormatError.
func WithOffset(err error, offset int64) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Offset < 0 {
		cp := *fe
		cp.Offset = offset
		return &cp
	}
	return err
}
