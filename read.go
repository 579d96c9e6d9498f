package mseed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/mseed/internal/mmap"
	"github.com/hupe1980/mseed/record"
)

// ReadOptions control how records are merged into a TraceList.
type ReadOptions struct {
	// UnpackData decodes samples while reading.
	UnpackData bool
	// RecordList keeps a reference to every record in its segment so that
	// samples can be decoded later with Materialize.
	RecordList bool
	// SkipCRC disables CRC-32C verification of v3 records.
	SkipCRC bool
}

func (l *TraceList) decodeOptions(o ReadOptions) record.DecodeOptions {
	return record.DecodeOptions{
		UnpackData:  o.UnpackData,
		SkipCRC:     o.SkipCRC,
		Diagnostics: l.opts.diagnostics,
	}
}

// ReadBuffer merges every record in buf and returns the number of records
// read. With RecordList the list keeps a reference to buf.
//
// Reading stops at the first invalid record; records before it stay merged.
func (l *TraceList) ReadBuffer(buf []byte, opts ReadOptions) (int, error) {
	return l.readRecords(record.NewBufferReader(buf, l.decodeOptions(opts)), bytes.NewReader(buf), opts)
}

// ReadStream merges every record read from r. With RecordList each record's
// bytes are retained.
func (l *TraceList) ReadStream(r io.Reader, opts ReadOptions) (int, error) {
	return l.readRecords(record.NewStreamReader(r, l.decodeOptions(opts)), nil, opts)
}

// ReadFile merges every record in the file at path. The file is memory
// mapped while reading; a record list re-opens the file on Materialize.
func (l *TraceList) ReadFile(path string, opts ReadOptions) (int, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	n, err := l.readRecords(record.NewBufferReader(f.Bytes(), l.decodeOptions(opts)), fileSource(path), opts)
	if err != nil {
		return n, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}

func (l *TraceList) readRecords(r record.Reader, src io.ReaderAt, opts ReadOptions) (int, error) {
	n := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		var ref *RecordPtr
		if opts.RecordList {
			h := rec.Header
			h.ExtraHeaders = bytes.Clone(h.ExtraHeaders)
			ref = &RecordPtr{Source: src, Offset: rec.Offset, Length: rec.RecordLength, Header: h}
			if src == nil {
				ref.Source, ref.Offset = bytes.NewReader(rec.Raw), 0
			}
		}
		if _, err := l.addRecord(rec, ref); err != nil {
			return n, err
		}
		n++
	}
}

// FromBuffer creates a TraceList from the records in buf.
func FromBuffer(buf []byte, ropts ReadOptions, optFns ...Option) (*TraceList, error) {
	l := New(optFns...)
	if _, err := l.ReadBuffer(buf, ropts); err != nil {
		return nil, err
	}
	return l, nil
}

// FromFile creates a TraceList from the records in the file at path.
func FromFile(path string, ropts ReadOptions, optFns ...Option) (*TraceList, error) {
	l := New(optFns...)
	if _, err := l.ReadFile(path, ropts); err != nil {
		return nil, err
	}
	return l, nil
}

// fileSource reads by opening the file on each call so that record lists
// do not hold descriptors.
type fileSource string

func (f fileSource) ReadAt(p []byte, off int64) (int, error) {
	fh, err := os.Open(string(f))
	if err != nil {
		return 0, err
	}
	defer func() { _ = fh.Close() }()
	return fh.ReadAt(p, off)
}

// Materialize decodes the record list of seg into its samples. Either all
// records decode or the segment is left unchanged.
func (l *TraceList) Materialize(seg *Segment) (err error) {
	if seg == nil {
		return &InvalidArgumentError{Arg: "seg", Reason: "nil segment"}
	}
	if seg.samples != nil {
		return nil
	}
	if len(seg.records) == 0 {
		return &ConfigurationError{Op: "materialize", Reason: "segment has no record list; read with ReadOptions.RecordList"}
	}

	began := time.Now()
	var sid SourceID
	defer func() {
		l.opts.metricsCollector.RecordMaterialize(len(seg.records), time.Since(began), err)
		l.opts.logger.LogMaterialize(sid, len(seg.records), seg.count, err)
	}()

	var samples Samples
	for _, ptr := range seg.records {
		sid = ptr.Header.SourceID
		raw, err := ptr.Read()
		if err != nil {
			return fmt.Errorf("materialize: %w", err)
		}
		rec, err := l.opts.codec.Decode(raw, record.DecodeOptions{UnpackData: true, Diagnostics: l.opts.diagnostics})
		if err != nil {
			return record.WithOffset(err, ptr.Offset)
		}
		if rec.Samples == nil {
			continue
		}
		if samples, err = record.Append(samples, rec.Samples); err != nil {
			return &FormatError{Op: "materialize", Offset: ptr.Offset, Reason: err.Error()}
		}
	}
	if samples == nil || int64(samples.Len()) != seg.count {
		got := 0
		if samples != nil {
			got = samples.Len()
		}
		return &FormatError{
			Op:     "materialize",
			Offset: -1,
			Reason: fmt.Sprintf("record list decoded to %d samples, segment declares %d", got, seg.count),
		}
	}
	if err := l.budget.Reserve(int64(samples.Len()) * int64(seg.sampleType.Size())); err != nil {
		return fmt.Errorf("materialize %s: %w", sid, err)
	}
	seg.samples = samples
	return nil
}

// MaterializeAll materializes every segment that has a record list.
func (l *TraceList) MaterializeAll() error {
	for t := range l.All() {
		for _, seg := range t.segments {
			if seg.samples != nil || len(seg.records) == 0 {
				continue
			}
			if err := l.Materialize(seg); err != nil {
				return err
			}
		}
	}
	return nil
}
