package mseed

import (
	"fmt"
	"io"

	"github.com/hupe1980/mseed/record"
)

// RecordPtr locates one record in its source so that it can be decoded
// later without keeping decoded samples in memory.
type RecordPtr struct {
	// Source provides the record bytes.
	Source io.ReaderAt
	// Offset and Length locate the record in Source.
	Offset int64
	Length int
	// Header is the decoded header of the record.
	Header record.Header
}

// Read returns the record bytes.
func (p RecordPtr) Read() ([]byte, error) {
	if p.Source == nil {
		return nil, &ConfigurationError{Op: "read record", Reason: "record pointer has no source"}
	}
	buf := make([]byte, p.Length)
	n, err := p.Source.ReadAt(buf, p.Offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read record at offset %d: %w", p.Offset, err)
}

// Segment is a time-contiguous run of samples of one rate and type.
//
// Segments are owned by their TraceID; the samples returned by Samples must
// not be modified.
type Segment struct {
	start      NSTime
	rate       float64
	sampleType SampleType
	pubVersion uint8

	// count is the declared sample count, equal to samples.Len() once decoded.
	count   int64
	samples Samples
	records []RecordPtr
	// spans partitions the samples by publication version, oldest first.
	spans []versionSpan
}

// versionSpan is a run of n consecutive samples of one publication version.
type versionSpan struct {
	n       int64
	version uint8
}

// appendSpans appends src to dst, joining neighbours of equal version.
func appendSpans(dst []versionSpan, src ...versionSpan) []versionSpan {
	for _, sp := range src {
		if sp.n <= 0 {
			continue
		}
		if k := len(dst); k > 0 && dst[k-1].version == sp.version {
			dst[k-1].n += sp.n
			continue
		}
		dst = append(dst, sp)
	}
	return dst
}

// sliceSpans returns the spans of samples [from, to).
func sliceSpans(spans []versionSpan, from, to int64) []versionSpan {
	var out []versionSpan
	var off int64
	for _, sp := range spans {
		lo, hi := max(off, from), min(off+sp.n, to)
		if lo < hi {
			out = appendSpans(out, versionSpan{n: hi - lo, version: sp.version})
		}
		off += sp.n
	}
	return out
}

func (s *Segment) setSpans(spans []versionSpan) {
	s.spans = spans
	s.pubVersion = 0
	for _, sp := range spans {
		s.pubVersion = max(s.pubVersion, sp.version)
	}
}

// versionOf returns the highest publication version of samples [from, to).
func (s *Segment) versionOf(from, to int64) uint8 {
	var v uint8
	for _, sp := range sliceSpans(s.spans, from, to) {
		v = max(v, sp.version)
	}
	return v
}

// slice returns a new segment holding a copy of samples [from, to). The
// record list is not carried over.
func (s *Segment) slice(from, to int64) *Segment {
	out := &Segment{
		start:      SampleTime(s.start, from, s.rate),
		rate:       s.rate,
		sampleType: s.sampleType,
		count:      to - from,
	}
	if s.samples != nil {
		out.samples = record.Clone(s.samples.Slice(int(from), int(to)))
	}
	out.setSpans(sliceSpans(s.spans, from, to))
	return out
}

// StartTime returns the time of the first sample.
func (s *Segment) StartTime() NSTime { return s.start }

// EndTime returns the time of the last sample.
func (s *Segment) EndTime() NSTime {
	if s.count <= 0 {
		return s.start
	}
	return SampleTime(s.start, s.count-1, s.rate)
}

// SampleRate returns the nominal sample rate in samples per second.
func (s *Segment) SampleRate() float64 { return s.rate }

// SampleType returns the element type of the segment's samples.
func (s *Segment) SampleType() SampleType { return s.sampleType }

// PubVersion returns the highest publication version merged into the segment.
func (s *Segment) PubVersion() uint8 { return s.pubVersion }

// SampleCount returns the number of samples the segment covers, decoded or not.
func (s *Segment) SampleCount() int64 { return s.count }

// NumSamples returns the number of decoded samples, 0 until the segment is
// materialized.
func (s *Segment) NumSamples() int {
	if s.samples == nil {
		return 0
	}
	return s.samples.Len()
}

// Samples returns the decoded samples, nil for an unmaterialized segment.
func (s *Segment) Samples() Samples { return s.samples }

// Materialized reports whether the segment's samples are decoded.
func (s *Segment) Materialized() bool { return s.samples != nil }

// RecordList returns the record references of a segment read with
// ReadOptions.RecordList, in time order.
func (s *Segment) RecordList() []RecordPtr {
	out := make([]RecordPtr, len(s.records))
	copy(out, s.records)
	return out
}

// SampleSizeType returns the sample size in bytes and its type code
// ('t', 'i', 'f' or 'd').
func (s *Segment) SampleSizeType() (int, byte) {
	return s.sampleType.Size(), s.sampleType.Code()
}

func (s *Segment) byteSize() int64 {
	if s.samples == nil {
		return 0
	}
	return int64(s.samples.Len()) * int64(s.sampleType.Size())
}

// TraceID holds all segments of one channel, sorted by start time and
// never overlapping.
type TraceID struct {
	sid        SourceID
	pubVersion uint8
	segments   []*Segment
}

// SourceID returns the channel identifier.
func (t *TraceID) SourceID() SourceID { return t.sid }

// PubVersion returns the highest publication version seen.
func (t *TraceID) PubVersion() uint8 { return t.pubVersion }

// Len returns the number of segments.
func (t *TraceID) Len() int { return len(t.segments) }

// Segments returns the segments oldest first. The slice is a copy; the
// segments are shared.
func (t *TraceID) Segments() []*Segment {
	out := make([]*Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Earliest returns the start of the first segment, NSTUnset when empty.
func (t *TraceID) Earliest() NSTime {
	if len(t.segments) == 0 {
		return NSTUnset
	}
	return t.segments[0].start
}

// Latest returns the end of the last segment, NSTUnset when empty.
func (t *TraceID) Latest() NSTime {
	if len(t.segments) == 0 {
		return NSTUnset
	}
	latest := t.segments[0].EndTime()
	for _, s := range t.segments[1:] {
		if e := s.EndTime(); e > latest {
			latest = e
		}
	}
	return latest
}

// SampleCount returns the total samples across all segments.
func (t *TraceID) SampleCount() int64 {
	var n int64
	for _, s := range t.segments {
		n += s.count
	}
	return n
}

func (t *TraceID) indexOf(seg *Segment) int {
	for i, s := range t.segments {
		if s == seg {
			return i
		}
	}
	return -1
}
