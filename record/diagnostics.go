package record

import "fmt"

// DefaultMaxDiagnostics is the number of messages a collector keeps.
const DefaultMaxDiagnostics = 10

// Diagnostics collects warning and error messages produced while decoding or
// encoding. When full, the oldest message is discarded.
//
// A Diagnostics is not safe for concurrent use; give each goroutine its own.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	max  int
	msgs []string
}

// NewDiagnostics returns a collector holding at most limit messages.
// limit <= 0 selects DefaultMaxDiagnostics.
func NewDiagnostics(limit int) *Diagnostics {
	if limit <= 0 {
		limit = DefaultMaxDiagnostics
	}
	return &Diagnostics{max: limit}
}

// Addf appends a formatted message.
func (d *Diagnostics) Addf(format string, args ...any) {
	if d == nil {
		return
	}
	if d.max <= 0 {
		d.max = DefaultMaxDiagnostics
	}
	if len(d.msgs) >= d.max {
		copy(d.msgs, d.msgs[1:])
		d.msgs = d.msgs[:len(d.msgs)-1]
	}
	d.msgs = append(d.msgs, fmt.Sprintf(format, args...))
}

// Len returns the number of buffered messages.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	return len(d.msgs)
}

// Messages returns a copy of the buffered messages, oldest first.
func (d *Diagnostics) Messages() []string {
	if d == nil || len(d.msgs) == 0 {
		return nil
	}
	out := make([]string, len(d.msgs))
	copy(out, d.msgs)
	return out
}

// Pop returns the buffered messages and empties the collector.
func (d *Diagnostics) Pop() []string {
	if d == nil || len(d.msgs) == 0 {
		return nil
	}
	out := d.msgs
	d.msgs = nil
	return out
}

// Clear discards all messages and returns how many were dropped.
func (d *Diagnostics) Clear() int {
	if d == nil {
		return 0
	}
	n := len(d.msgs)
	d.msgs = nil
	return n
}
