package mseed

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/mseed/record"
)

// WindowStats counts what WindowStream did.
type WindowStats struct {
	RecordsIn  int
	RecordsOut int
	Skipped    int
	Trimmed    int
	BytesOut   int64
}

// WindowStream copies the records of r that intersect win to w. Records
// inside the window are copied verbatim, records across a bound are trimmed
// and the rest are skipped.
func WindowStream(r io.Reader, w io.Writer, win Window) (WindowStats, error) {
	return defaultTrimmer.WindowStream(r, w, win)
}

// WindowStream is like the package-level WindowStream but uses t's codec,
// logger and metrics.
func (t *Trimmer) WindowStream(r io.Reader, w io.Writer, win Window) (WindowStats, error) {
	var stats WindowStats
	if err := win.validate(); err != nil {
		return stats, err
	}
	sr := record.NewStreamReader(r, record.DecodeOptions{UnpackData: true, Diagnostics: t.opts.diagnostics})
	write := func(raw []byte) error {
		n, err := w.Write(raw)
		stats.BytesOut += int64(n)
		if err != nil {
			return err
		}
		stats.RecordsOut++
		return nil
	}
	for {
		rec, err := sr.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.RecordsIn++

		end := rec.EndTime()
		switch {
		case !win.Overlaps(rec.StartTime, end):
			stats.Skipped++
			continue
		case win.Contains(rec.StartTime, end):
			if err := write(rec.Raw); err != nil {
				return stats, fmt.Errorf("window: %w", err)
			}
			continue
		}

		res, err := t.Trim(rec, win)
		if err != nil {
			return stats, err
		}
		switch res.Status {
		case TrimEmpty:
			stats.Skipped++
			continue
		case TrimTrimmed:
			stats.Trimmed++
		}
		for _, raw := range res.Records {
			if err := write(raw); err != nil {
				return stats, fmt.Errorf("window: %w", err)
			}
		}
	}
}
