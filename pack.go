package mseed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/hupe1980/mseed/record"
)

// PackOptions control Generate and Pack.
type PackOptions struct {
	// FormatVersion is 2 or 3. Zero selects 3.
	FormatVersion uint8
	// RecordLength is the maximum record length. Zero selects 4096.
	RecordLength int
	// Encoding selects the data encoding. Zero selects the default for each
	// segment's sample type.
	Encoding record.Encoding
	// FlushData packs the remainder of every segment into a short record.
	FlushData bool
	// FlushIdle packs the remainder of a segment whose last sample is older
	// than Now by more than FlushIdle. Zero disables idle flushing.
	FlushIdle time.Duration
	// Now is the reference time for FlushIdle. Zero means the current time.
	Now NSTime
	// RemovePacked removes emitted samples from the list as each record is
	// produced. Without it the buffered samples are left in place and are
	// emitted again by the next call.
	RemovePacked bool
	// ExtraHeaders is a JSON object written to every v3 record.
	ExtraHeaders []byte
}

func (o PackOptions) encodeOptions(diag *record.Diagnostics) record.EncodeOptions {
	return record.EncodeOptions{
		FormatVersion:   o.FormatVersion,
		MaxRecordLength: o.RecordLength,
		Encoding:        o.Encoding,
		Diagnostics:     diag,
	}
}

// PackStats counts what a pack call emitted.
type PackStats struct {
	Records int
	Samples int64
	Bytes   int64
}

// Generator produces records one at a time from a TraceList:
//
//	g := tl.Generate(mseed.PackOptions{FlushData: true})
//	for g.Next() {
//	    w.Write(g.Record())
//	}
//	if err := g.Err(); err != nil { ... }
//
// TraceIDs are visited in SourceID order and segments oldest first. With
// RemovePacked the samples of a record are removed when Next returns it, so
// stopping early never loses or duplicates data.
type Generator struct {
	l    *TraceList
	opts PackOptions
	enc  record.EncodeOptions
	now  NSTime

	keys []traceKey
	ki   int
	si   int
	off  int64 // samples of the current segment emitted without removal

	cur   []byte
	err   error
	stats PackStats
}

// Generate returns a Generator over the list's buffered samples.
func (l *TraceList) Generate(opts PackOptions) *Generator {
	now := opts.Now
	if now == 0 {
		now = record.NSTimeFromTime(time.Now())
	}
	return &Generator{
		l:    l,
		opts: opts,
		enc:  opts.encodeOptions(l.opts.diagnostics),
		now:  now,
		keys: append([]traceKey(nil), l.keys...),
	}
}

// Next advances to the next record. It returns false when no more records
// are due or on error.
func (g *Generator) Next() bool {
	g.cur = nil
	if g.err != nil {
		return false
	}
	raw, err := g.step(nil)
	if err != nil {
		g.err = err
		return false
	}
	g.cur = raw
	return raw != nil
}

// Record returns the current record. It is valid until the next call to Next.
func (g *Generator) Record() []byte { return g.cur }

// Err returns the error that stopped the generator, if any.
func (g *Generator) Err() error { return g.err }

// Stats returns the totals emitted so far.
func (g *Generator) Stats() PackStats { return g.stats }

// Records adapts the generator to a range-over-func iterator. A failure is
// yielded last with a nil record.
func (g *Generator) Records() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for g.Next() {
			if !yield(g.Record(), nil) {
				return
			}
		}
		if g.err != nil {
			yield(nil, g.err)
		}
	}
}

// step encodes the next due record, hands it to emit and then commits it.
// It returns nil, nil when nothing more is due.
func (g *Generator) step(emit func([]byte) error) ([]byte, error) {
	l := g.l
	for g.ki < len(g.keys) {
		key := g.keys[g.ki]
		t, ok := l.traces[key]
		if !ok || g.si >= len(t.segments) {
			g.ki, g.si, g.off = g.ki+1, 0, 0
			continue
		}
		seg := t.segments[g.si]
		if seg.samples == nil {
			return nil, &ConfigurationError{
				Op:     "pack",
				Reason: fmt.Sprintf("%s: segment at %s is not materialized", t.sid, seg.start),
			}
		}
		avail := int64(seg.samples.Len()) - g.off
		if avail <= 0 {
			g.si, g.off = g.si+1, 0
			continue
		}

		began := time.Now()
		h := record.Header{
			SourceID:     t.sid,
			StartTime:    SampleTime(seg.start, g.off, seg.rate),
			SampleRate:   seg.rate,
			PubVersion:   seg.versionOf(g.off, g.off+1),
			ExtraHeaders: g.opts.ExtraHeaders,
		}
		g.enc.SequenceNumber = g.stats.Records + 1
		tail := seg.samples.Slice(int(g.off), seg.samples.Len())
		raw, packed, full, err := l.opts.codec.EncodeRecord(h, tail, g.enc)
		if err == nil {
			// The header carries the highest version of the samples it holds.
			if v := seg.versionOf(g.off, g.off+int64(packed)); v != h.PubVersion {
				h.PubVersion = v
				raw, packed, full, err = l.opts.codec.EncodeRecord(h, tail, g.enc)
			}
		}
		if err != nil {
			l.opts.metricsCollector.RecordPack(0, 0, time.Since(began), err)
			return nil, fmt.Errorf("pack %s: %w", t.sid, err)
		}
		if !full && !g.flush(seg) {
			// Remainder stays buffered.
			g.si, g.off = g.si+1, 0
			continue
		}
		if emit != nil {
			if err := emit(raw); err != nil {
				return nil, err
			}
		}
		l.opts.metricsCollector.RecordPack(int64(packed), len(raw), time.Since(began), nil)

		g.stats.Records++
		g.stats.Samples += int64(packed)
		g.stats.Bytes += int64(len(raw))
		if g.opts.RemovePacked {
			l.consume(key, t, g.si, int64(packed))
		} else {
			g.off += int64(packed)
		}
		return raw, nil
	}
	return nil, nil
}

func (g *Generator) flush(seg *Segment) bool {
	if g.opts.FlushData {
		return true
	}
	return g.opts.FlushIdle > 0 && time.Duration(g.now-seg.EndTime()) > g.opts.FlushIdle
}

// consume removes n leading samples of segment si of t. Empty segments and
// TraceIDs are removed.
func (l *TraceList) consume(key traceKey, t *TraceID, si int, n int64) {
	seg := t.segments[si]
	l.budget.Release(n * int64(seg.sampleType.Size()))
	if n >= seg.count {
		t.segments = append(t.segments[:si], t.segments[si+1:]...)
		if len(t.segments) == 0 {
			l.drop(key)
		}
		return
	}
	seg.samples = seg.samples.Slice(int(n), seg.samples.Len())
	seg.start = SampleTime(seg.start, n, seg.rate)
	seg.count -= n
	seg.records = nil
	seg.setSpans(sliceSpans(seg.spans, n, seg.count+n))
}

// Pack encodes due records and passes each to handler. With RemovePacked a
// record's samples are removed only after handler returns nil.
func (l *TraceList) Pack(handler func([]byte) error, opts PackOptions) (stats PackStats, err error) {
	if handler == nil {
		return PackStats{}, &InvalidArgumentError{Arg: "handler", Reason: "nil record handler"}
	}
	g := l.Generate(opts)
	defer func() { l.opts.logger.LogPack(stats.Records, stats.Samples, err) }()
	for {
		raw, err := g.step(handler)
		if err != nil {
			return g.stats, err
		}
		if raw == nil {
			return g.stats, nil
		}
	}
}

// WriteTo packs every buffered sample, flushing partial records, and writes
// the records to w.
func (l *TraceList) WriteTo(w io.Writer, opts PackOptions) (PackStats, error) {
	opts.FlushData = true
	return l.Pack(func(rec []byte) error {
		_, err := w.Write(rec)
		return err
	}, opts)
}

// ErrFileExists is returned by WriteFile when the target exists and
// overwrite is false.
var ErrFileExists = errors.New("file exists")

// WriteFile packs every buffered sample into the file at path.
func (l *TraceList) WriteFile(path string, overwrite bool, opts PackOptions) (PackStats, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return PackStats{}, fmt.Errorf("write %s: %w", path, ErrFileExists)
		}
		return PackStats{}, fmt.Errorf("write %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	stats, err := l.WriteTo(bw, opts)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return stats, fmt.Errorf("write %s: %w", path, err)
	}
	return stats, nil
}
