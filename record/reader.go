package record

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// Reader yields consecutive records. Next returns io.EOF after the last one.
type Reader interface {
	Next() (*Record, error)
}

// All adapts r to a range-over-func iterator. Iteration stops after the
// first error, which is yielded with a nil record.
func All(r Reader) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// BufferReader reads records from an in-memory buffer. Decoded records alias
// the buffer.
type BufferReader struct {
	buf  []byte
	off  int64
	opts DecodeOptions
}

// NewBufferReader returns a reader over buf.
func NewBufferReader(buf []byte, opts DecodeOptions) *BufferReader {
	return &BufferReader{buf: buf, opts: opts}
}

// Offset returns the offset of the next record.
func (r *BufferReader) Offset() int64 { return r.off }

// Next decodes the next record.
func (r *BufferReader) Next() (*Record, error) {
	if r.off >= int64(len(r.buf)) {
		return nil, io.EOF
	}
	rec, err := Decode(r.buf[r.off:], r.opts)
	if err != nil {
		return nil, WithOffset(err, r.off)
	}
	rec.Offset = r.off
	r.off += int64(rec.RecordLength)
	return rec, nil
}

// StreamReader reads records from an io.Reader. Each record is copied into
// its own buffer.
type StreamReader struct {
	r    *bufio.Reader
	off  int64
	opts DecodeOptions
}

// headerPeek is enough for a v2 fixed header plus a typical blockette chain.
const headerPeek = 512

// NewStreamReader returns a reader over r.
func NewStreamReader(r io.Reader, opts DecodeOptions) *StreamReader {
	return &StreamReader{r: bufio.NewReaderSize(r, 64*1024), opts: opts}
}

// Offset returns the offset of the next record.
func (r *StreamReader) Offset() int64 { return r.off }

// Next reads and decodes the next record.
func (r *StreamReader) Next() (*Record, error) {
	hdr, err := r.r.Peek(v3FixedSize)
	if len(hdr) == 0 && errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	_, length, derr := Detect(hdr)
	if errors.Is(derr, io.ErrUnexpectedEOF) {
		hdr, err = r.r.Peek(headerPeek)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		_, length, derr = Detect(hdr)
	}
	if errors.Is(derr, io.ErrUnexpectedEOF) {
		return nil, WithOffset(formatErrorf("decode", r.opts.Diagnostics, "truncated record of %d bytes", len(hdr)), r.off)
	}
	if derr != nil {
		return nil, WithOffset(derr, r.off)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, WithOffset(formatErrorf("decode", r.opts.Diagnostics, "truncated record, want %d bytes", length), r.off)
		}
		return nil, err
	}
	rec, err := Decode(buf, r.opts)
	if err != nil {
		return nil, WithOffset(err, r.off)
	}
	rec.Offset = r.off
	r.off += int64(length)
	return rec, nil
}
