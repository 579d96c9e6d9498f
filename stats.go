package mseed

import (
	"errors"
	"io"
	"maps"
	"slices"

	"github.com/hupe1980/mseed/record"
)

// SourceStats summarizes the records of one SourceID.
type SourceStats struct {
	SourceID   SourceID
	Records    int
	Samples    int64
	Bytes      int64
	Earliest   NSTime
	Latest     NSTime
	SampleRate float64
	PubVersion uint8
	// Encodings lists the encodings seen, in first-seen order.
	Encodings []record.Encoding
}

// StreamStats accumulates record statistics.
type StreamStats struct {
	Records int
	Samples int64
	Bytes   int64

	sources map[SourceID]*SourceStats
}

// Add accounts for one record header.
func (s *StreamStats) Add(h *record.Header) {
	if s.sources == nil {
		s.sources = make(map[SourceID]*SourceStats)
	}
	s.Records++
	s.Samples += h.SampleCount
	s.Bytes += int64(h.RecordLength)

	src, ok := s.sources[h.SourceID]
	if !ok {
		src = &SourceStats{
			SourceID:   h.SourceID,
			Earliest:   h.StartTime,
			Latest:     h.EndTime(),
			SampleRate: h.SampleRate,
		}
		s.sources[h.SourceID] = src
	}
	src.Records++
	src.Samples += h.SampleCount
	src.Bytes += int64(h.RecordLength)
	src.Earliest = min(src.Earliest, h.StartTime)
	src.Latest = max(src.Latest, h.EndTime())
	src.PubVersion = max(src.PubVersion, h.PubVersion)
	if !slices.Contains(src.Encodings, h.Encoding) {
		src.Encodings = append(src.Encodings, h.Encoding)
	}
}

// Sources returns per-SourceID statistics in SourceID order.
func (s *StreamStats) Sources() []SourceStats {
	keys := slices.SortedFunc(maps.Keys(s.sources), SourceID.Compare)
	out := make([]SourceStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, *s.sources[k])
	}
	return out
}

// Source returns the statistics of sid.
func (s *StreamStats) Source(sid SourceID) (SourceStats, error) {
	src, ok := s.sources[sid]
	if !ok {
		return SourceStats{}, &NoSuchSourceIDError{SourceID: sid}
	}
	return *src, nil
}

// CollectStats reads every record header of r. Sample payloads are not
// decoded, but v3 CRCs are verified unless opts.SkipCRC is set.
func CollectStats(r io.Reader, opts ReadOptions) (*StreamStats, error) {
	sr := record.NewStreamReader(r, record.DecodeOptions{SkipCRC: opts.SkipCRC})
	stats := &StreamStats{}
	for {
		rec, err := sr.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.Add(&rec.Header)
	}
}
