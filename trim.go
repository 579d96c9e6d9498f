package mseed

import (
	"fmt"
	"time"

	"github.com/hupe1980/mseed/record"
)

// TrimStatus is the outcome of trimming one record.
type TrimStatus uint8

const (
	// TrimUnchanged means the window covers the whole record.
	TrimUnchanged TrimStatus = iota
	// TrimTrimmed means samples were removed and the rest re-encoded.
	TrimTrimmed
	// TrimEmpty means no sample lies in the window.
	TrimEmpty
	// TrimNotTrimmable means the record has no samples or no sample rate and
	// must be kept as is.
	TrimNotTrimmable
)

func (s TrimStatus) String() string {
	switch s {
	case TrimUnchanged:
		return "unchanged"
	case TrimTrimmed:
		return "trimmed"
	case TrimEmpty:
		return "empty"
	case TrimNotTrimmable:
		return "not trimmable"
	default:
		return fmt.Sprintf("TrimStatus(%d)", uint8(s))
	}
}

// Window is an inclusive time range. NSTUnset leaves a side open.
type Window struct {
	Earliest NSTime
	Latest   NSTime
}

// Since returns a window open at its end.
func Since(t NSTime) Window { return Window{Earliest: t, Latest: NSTUnset} }

// Until returns a window open at its start.
func Until(t NSTime) Window { return Window{Earliest: NSTUnset, Latest: t} }

func (w Window) validate() error {
	switch {
	case w.Earliest == NSTUnset && w.Latest == NSTUnset:
		return &InvalidArgumentError{Arg: "window", Reason: "neither earliest nor latest given"}
	case w.Earliest != NSTUnset && w.Latest != NSTUnset && w.Earliest > w.Latest:
		return &InvalidArgumentError{Arg: "window", Reason: fmt.Sprintf("earliest %s after latest %s", w.Earliest, w.Latest)}
	}
	return nil
}

// Overlaps reports whether [start, end] intersects the window.
func (w Window) Overlaps(start, end NSTime) bool {
	if w.Earliest != NSTUnset && end < w.Earliest {
		return false
	}
	if w.Latest != NSTUnset && start > w.Latest {
		return false
	}
	return true
}

// Contains reports whether [start, end] lies inside the window.
func (w Window) Contains(start, end NSTime) bool {
	if w.Earliest != NSTUnset && start < w.Earliest {
		return false
	}
	if w.Latest != NSTUnset && end > w.Latest {
		return false
	}
	return true
}

// TrimResult holds the records that replace a trimmed record.
type TrimResult struct {
	Status TrimStatus
	// Records is the original record for TrimUnchanged and TrimNotTrimmable,
	// the re-encoded records for TrimTrimmed and nil for TrimEmpty.
	Records [][]byte
	// StartTime and Samples describe the kept samples.
	StartTime NSTime
	Samples   Samples
}

// Trimmer trims single records to a time window.
type Trimmer struct {
	opts options
}

// NewTrimmer creates a Trimmer. It honours WithCodec, WithDiagnostics,
// WithLogger and WithMetricsCollector.
func NewTrimmer(optFns ...Option) *Trimmer {
	return &Trimmer{opts: applyOptions(optFns)}
}

var defaultTrimmer = NewTrimmer()

// TrimRecord trims rec with the default Trimmer.
func TrimRecord(rec *record.Record, win Window) (TrimResult, error) {
	return defaultTrimmer.Trim(rec, win)
}

// TrimBytes decodes the record at the start of raw and trims it.
func (t *Trimmer) TrimBytes(raw []byte, win Window) (TrimResult, error) {
	rec, err := t.opts.codec.Decode(raw, record.DecodeOptions{UnpackData: true, Diagnostics: t.opts.diagnostics})
	if err != nil {
		return TrimResult{}, err
	}
	return t.Trim(rec, win)
}

// Trim keeps the samples of rec inside win. rec must carry its decoded
// samples. Sample times on a window bound are kept.
func (t *Trimmer) Trim(rec *record.Record, win Window) (res TrimResult, err error) {
	if rec == nil {
		return TrimResult{}, &InvalidArgumentError{Arg: "rec", Reason: "nil record"}
	}
	if err := win.validate(); err != nil {
		return TrimResult{}, err
	}

	began := time.Now()
	defer func() {
		t.opts.metricsCollector.RecordTrim(res.Status, time.Since(began), err)
		var kept int64
		if res.Samples != nil {
			kept = int64(res.Samples.Len())
		}
		t.opts.logger.LogTrim(rec.SourceID, res.Status, kept, err)
	}()

	if rec.SampleCount == 0 || rec.SampleRate == 0 {
		return notTrimmable(rec), nil
	}
	if rec.Samples == nil || int64(rec.Samples.Len()) != rec.SampleCount {
		return TrimResult{}, &InvalidArgumentError{Arg: "rec", Reason: "record was decoded without its samples"}
	}

	start, end := rec.StartTime, rec.EndTime()
	if !win.Overlaps(start, end) {
		return TrimResult{Status: TrimEmpty, StartTime: start}, nil
	}

	period := int64(NSTModulus / rec.SampleRate)
	if period <= 0 {
		return notTrimmable(rec), nil
	}

	// first and last index the kept samples. The period estimate is
	// corrected against SampleTime, which rounds each sample time.
	n := rec.SampleCount
	base := start
	first, last := int64(0), n-1
	if e := win.Earliest; e != NSTUnset && base < e {
		first = min(ceilDiv(int64(e-base), period), n)
		for first > 0 && SampleTime(base, first-1, rec.SampleRate) >= e {
			first--
		}
		for first < n && SampleTime(base, first, rec.SampleRate) < e {
			first++
		}
	}
	if l := win.Latest; l != NSTUnset && l < end {
		if l < base {
			return TrimResult{Status: TrimEmpty, StartTime: base}, nil
		}
		last = min(int64(l-base)/period, n-1)
		for last+1 < n && SampleTime(base, last+1, rec.SampleRate) <= l {
			last++
		}
		for last >= 0 && SampleTime(base, last, rec.SampleRate) > l {
			last--
		}
	}
	if first > last {
		return TrimResult{Status: TrimEmpty, StartTime: SampleTime(base, first, rec.SampleRate)}, nil
	}
	skip, remove := first, n-1-last
	start = SampleTime(base, first, rec.SampleRate)

	kept := rec.Samples.Slice(int(skip), int(n-remove))
	if skip == 0 && remove == 0 && rec.Raw != nil {
		return TrimResult{Status: TrimUnchanged, Records: [][]byte{rec.Raw}, StartTime: start, Samples: kept}, nil
	}

	h := rec.Header
	h.StartTime = start
	records, err := t.encodeAll(h, kept)
	if err != nil {
		return TrimResult{}, fmt.Errorf("trim %s: %w", rec.SourceID, err)
	}
	status := TrimTrimmed
	if skip == 0 && remove == 0 {
		status = TrimUnchanged
	}
	return TrimResult{Status: status, Records: records, StartTime: start, Samples: kept}, nil
}

func notTrimmable(rec *record.Record) TrimResult {
	res := TrimResult{Status: TrimNotTrimmable, StartTime: rec.StartTime, Samples: rec.Samples}
	if rec.Raw != nil {
		res.Records = [][]byte{rec.Raw}
	}
	return res
}

// encodeAll encodes samples in the format, length and encoding of h.
func (t *Trimmer) encodeAll(h record.Header, samples Samples) ([][]byte, error) {
	opts := record.EncodeOptions{
		FormatVersion:   h.FormatVersion,
		MaxRecordLength: h.RecordLength,
		Encoding:        h.Encoding,
		Diagnostics:     t.opts.diagnostics,
	}
	var out [][]byte
	base := h.StartTime
	for off, n := 0, samples.Len(); off < n; {
		h.StartTime = SampleTime(base, int64(off), h.SampleRate)
		raw, packed, _, err := t.opts.codec.EncodeRecord(h, samples.Slice(off, n), opts)
		if err != nil {
			return nil, err
		}
		if packed == 0 {
			return nil, &record.FormatError{Op: "encode", Reason: fmt.Sprintf("record length %d holds no samples", h.RecordLength)}
		}
		out = append(out, raw)
		off += packed
	}
	return out, nil
}

// ceilDiv returns ceil(a/b) for a >= 0, b > 0.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
