package mseed

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/hupe1980/mseed/record"
)

// incoming is a run of data to merge: decoded samples, a record reference,
// both, or neither (header-only coverage).
type incoming struct {
	sid        SourceID
	start      NSTime
	rate       float64
	sampleType SampleType
	count      int64
	samples    Samples
	ref        *RecordPtr
	version    uint8
}

func (in *incoming) end() NSTime {
	if in.count <= 0 {
		return in.start
	}
	return SampleTime(in.start, in.count-1, in.rate)
}

// sub returns a copy of samples [i, j). Only valid for decoded runs.
func (in incoming) sub(i, j int64) incoming {
	out := in
	out.start = SampleTime(in.start, i, in.rate)
	out.count = j - i
	out.samples = record.Clone(in.samples.Slice(int(i), int(j)))
	out.ref = nil
	return out
}

func (in *incoming) byteSize() int64 {
	if in.samples == nil {
		return 0
	}
	return in.count * int64(in.sampleType.Size())
}

// AddData merges a run of samples for sid starting at start. The samples are
// copied. It returns the segment that now holds the data.
func (l *TraceList) AddData(sid SourceID, samples Samples, rate float64, start NSTime, pubVersion uint8) (*Segment, error) {
	switch {
	case sid == "":
		return nil, &InvalidArgumentError{Arg: "sid", Reason: "empty source id"}
	case samples == nil:
		return nil, &InvalidArgumentError{Arg: "samples", Reason: "nil sample run"}
	case rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0):
		return nil, &InvalidArgumentError{Arg: "rate", Reason: fmt.Sprintf("invalid sample rate %v", rate)}
	}
	return l.merge(incoming{
		sid:        sid,
		start:      start,
		rate:       rate,
		sampleType: samples.Type(),
		count:      int64(samples.Len()),
		samples:    record.Clone(samples),
		version:    pubVersion,
	})
}

// AddRecord merges a decoded record. Its samples are copied. A record
// decoded without its samples adds header-only coverage that can be neither
// packed nor materialized.
func (l *TraceList) AddRecord(rec *record.Record) (*Segment, error) {
	if rec == nil {
		return nil, &InvalidArgumentError{Arg: "rec", Reason: "nil record"}
	}
	owned := *rec
	owned.Samples = record.Clone(rec.Samples)
	return l.addRecord(&owned, nil)
}

func (l *TraceList) addRecord(rec *record.Record, ref *RecordPtr) (*Segment, error) {
	in := incoming{
		sid:        rec.SourceID,
		start:      rec.StartTime,
		rate:       rec.SampleRate,
		sampleType: rec.SampleType(),
		count:      rec.SampleCount,
		samples:    rec.Samples,
		ref:        ref,
		version:    rec.PubVersion,
	}
	if rec.Samples != nil {
		in.count = int64(rec.Samples.Len())
	}
	return l.merge(in)
}

// merge runs the merge engine for one run. On error the list is unchanged.
func (l *TraceList) merge(in incoming) (seg *Segment, err error) {
	began := time.Now()
	defer func() {
		l.opts.metricsCollector.RecordIngest(in.count, time.Since(began), err)
		l.opts.logger.LogIngest(in.sid, in.start, in.count, err)
	}()
	if in.count == 0 {
		return nil, nil
	}

	key := l.keyFor(in.sid, in.version)
	t, exists := l.traces[key]
	if !exists {
		t = &TraceID{sid: in.sid}
	}

	plan, err := l.planMerge(t, in)
	if err != nil {
		return nil, err
	}
	var need int64
	for i := range plan.pieces {
		need += plan.pieces[i].byteSize()
	}
	if err := l.budget.Reserve(need); err != nil {
		return nil, fmt.Errorf("add %d samples for %s: %w", in.count, in.sid, err)
	}

	replaced := l.applyCuts(t, plan.cuts)
	if plan.dropped > 0 || replaced > 0 {
		l.opts.logger.LogOverlap(in.sid, plan.dropped+replaced, replaced > 0)
	}
	for _, p := range plan.pieces {
		seg = l.mergePiece(t, p)
	}
	if seg == nil {
		seg = t.segmentAt(in.start)
	}
	t.pubVersion = max(t.pubVersion, in.version)
	if !exists && len(t.segments) > 0 {
		l.insert(key, t)
	}
	return seg, nil
}

// segmentCut removes samples [from, to) of an existing segment.
type segmentCut struct {
	seg      *Segment
	from, to int64
}

type mergePlan struct {
	pieces  []incoming
	cuts    []segmentCut
	dropped int64
}

// planMerge resolves overlaps between in and the segments of t without
// modifying anything. Overlaps are decided per version span of a segment:
// data with the higher publication version wins, and on a tie the existing
// data is kept.
func (l *TraceList) planMerge(t *TraceID, in incoming) (mergePlan, error) {
	plan := mergePlan{pieces: []incoming{in}}
	for _, seg := range t.segments {
		if !l.overlaps(seg, &in) {
			continue
		}
		margin := l.overlapMargin(seg.rate)
		var off int64
		for _, sp := range seg.spans {
			lo, hi := off, off+sp.n
			off = hi
			if in.version > sp.version {
				from, to := coveredRange(seg.start, seg.rate, seg.count, in.start, in.end(), margin)
				from, to = max(from, lo), min(to, hi)
				if from >= to {
					continue
				}
				if seg.samples == nil {
					return plan, &ConfigurationError{
						Op:     "merge",
						Reason: fmt.Sprintf("%s: cannot replace samples of an unmaterialized segment", in.sid),
					}
				}
				plan.cuts = append(plan.cuts, segmentCut{seg: seg, from: from, to: to})
				continue
			}

			spanStart := SampleTime(seg.start, lo, seg.rate)
			spanEnd := SampleTime(seg.start, hi-1, seg.rate)
			next := plan.pieces[:0:0]
			for _, p := range plan.pieces {
				from, to := coveredRange(p.start, p.rate, p.count, spanStart, spanEnd, l.overlapMargin(p.rate))
				if from >= to {
					next = append(next, p)
					continue
				}
				if p.samples == nil && (from > 0 || to < p.count) {
					return plan, &ConfigurationError{
						Op:     "merge",
						Reason: fmt.Sprintf("%s: cannot trim a partially overlapping record that is not decoded", in.sid),
					}
				}
				plan.dropped += to - from
				if from > 0 {
					next = append(next, p.sub(0, from))
				}
				if to < p.count {
					next = append(next, p.sub(to, p.count))
				}
			}
			plan.pieces = next
		}
	}
	return plan, nil
}

// overlapMargin is how far beyond a span's first and last sample another
// sample still collides with it: one period less the contiguity tolerance.
func (l *TraceList) overlapMargin(rate float64) float64 {
	return max(SamplePeriod(rate)-l.opts.timeTol(rate), 1)
}

func (l *TraceList) overlaps(seg *Segment, in *incoming) bool {
	m := l.overlapMargin(seg.rate)
	return float64(in.start) < float64(seg.EndTime())+m && float64(in.end()) > float64(seg.start)-m
}

// coveredRange returns the index range [from, to) of the samples of a run
// that fall strictly within margin of [lo, hi].
func coveredRange(start NSTime, rate float64, count int64, lo, hi NSTime, margin float64) (int64, int64) {
	if rate == 0 {
		if start >= lo && start <= hi {
			return 0, count
		}
		return 0, 0
	}
	p := SamplePeriod(rate)
	from := int64(math.Floor((float64(lo-start)-margin)/p)) + 1
	to := int64(math.Ceil((float64(hi-start) + margin) / p))
	return min(max(from, 0), count), min(max(to, 0), count)
}

// applyCuts removes the planned sample ranges from existing segments and
// returns the number of samples removed. A cut segment is replaced by copies
// of its remaining parts.
func (l *TraceList) applyCuts(t *TraceID, cuts []segmentCut) int64 {
	var (
		order []*Segment
		bySeg = make(map[*Segment][]segmentCut)
	)
	for _, c := range cuts {
		if _, ok := bySeg[c.seg]; !ok {
			order = append(order, c.seg)
		}
		bySeg[c.seg] = append(bySeg[c.seg], c)
	}

	var removed int64
	for _, seg := range order {
		i := t.indexOf(seg)
		if i < 0 {
			continue
		}
		segCuts := bySeg[seg]
		slices.SortFunc(segCuts, func(a, b segmentCut) int { return cmp.Compare(a.from, b.from) })

		var (
			repl []*Segment
			pos  int64
		)
		for _, c := range segCuts {
			from := max(c.from, pos)
			if c.to <= from {
				continue
			}
			if from > pos {
				repl = append(repl, seg.slice(pos, from))
			}
			removed += c.to - from
			l.budget.Release((c.to - from) * int64(seg.sampleType.Size()))
			pos = c.to
		}
		if pos < seg.count {
			repl = append(repl, seg.slice(pos, seg.count))
		}
		t.segments = slices.Replace(t.segments, i, i+1, repl...)
	}
	return removed
}

// compatible reports whether p may extend s. Decoded runs join regardless
// of their record lists; undecoded runs need a record list on both sides or
// on neither.
func (l *TraceList) compatible(s *Segment, p *incoming) bool {
	if s.sampleType != p.sampleType || !l.opts.rateMatch(s.rate, p.rate) {
		return false
	}
	if (s.samples != nil) != (p.samples != nil) {
		return false
	}
	return s.samples != nil || (len(s.records) > 0) == (p.ref != nil)
}

// follows reports whether p starts where s ends.
func (l *TraceList) follows(s *Segment, p *incoming) bool {
	expected := SampleTime(s.start, s.count, s.rate)
	return math.Abs(float64(p.start-expected)) <= l.opts.timeTol(s.rate)
}

// precedes reports whether s starts where p ends.
func (l *TraceList) precedes(p *incoming, s *Segment) bool {
	expected := SampleTime(p.start, p.count, p.rate)
	return math.Abs(float64(s.start-expected)) <= l.opts.timeTol(p.rate)
}

// mergePiece inserts a non-overlapping run into t, extending the previous
// segment, the next one, or both when the run bridges a gap.
func (l *TraceList) mergePiece(t *TraceID, p incoming) *Segment {
	idx := sort.Search(len(t.segments), func(i int) bool { return t.segments[i].start > p.start })

	var prev, next *Segment
	if idx > 0 {
		prev = t.segments[idx-1]
	}
	if idx < len(t.segments) {
		next = t.segments[idx]
	}
	appendPrev := prev != nil && l.compatible(prev, &p) && l.follows(prev, &p)
	prependNext := next != nil && l.compatible(next, &p) && l.precedes(&p, next)

	switch {
	case appendPrev && prependNext:
		prev.appendRun(p)
		prev.appendSegment(next)
		t.segments = slices.Delete(t.segments, idx, idx+1)
		return prev
	case appendPrev:
		prev.appendRun(p)
		return prev
	case prependNext:
		next.prependRun(p)
		return next
	}

	seg := &Segment{
		start:      p.start,
		rate:       p.rate,
		sampleType: p.sampleType,
		count:      p.count,
		samples:    p.samples,
		records:    p.refs(),
	}
	seg.setSpans([]versionSpan{{n: p.count, version: p.version}})
	t.segments = slices.Insert(t.segments, idx, seg)
	return seg
}

func (in *incoming) refs() []RecordPtr {
	if in.ref == nil {
		return nil
	}
	return []RecordPtr{*in.ref}
}

// joinRecords concatenates the record lists of two adjacent runs. A decoded
// segment keeps its list only while every sample is backed by a record.
func joinRecords(a, b []RecordPtr, decoded bool) []RecordPtr {
	if decoded && (len(a) == 0 || len(b) == 0) {
		return nil
	}
	return append(a, b...)
}

func (s *Segment) appendRun(p incoming) {
	if p.samples != nil {
		// compatible guarantees matching types.
		s.samples, _ = record.Append(s.samples, p.samples)
	}
	s.records = joinRecords(s.records, p.refs(), s.samples != nil)
	s.count += p.count
	s.setSpans(appendSpans(s.spans, versionSpan{n: p.count, version: p.version}))
}

func (s *Segment) prependRun(p incoming) {
	if p.samples != nil {
		s.samples, _ = record.Concat(p.samples, s.samples)
	}
	s.records = joinRecords(p.refs(), s.records, s.samples != nil)
	s.start = p.start
	s.count += p.count
	s.setSpans(appendSpans([]versionSpan{{n: p.count, version: p.version}}, s.spans...))
}

func (s *Segment) appendSegment(o *Segment) {
	if o.samples != nil {
		s.samples, _ = record.Append(s.samples, o.samples)
	}
	s.records = joinRecords(s.records, o.records, s.samples != nil)
	s.count += o.count
	s.setSpans(appendSpans(s.spans, o.spans...))
}

// segmentAt returns the segment covering ts, nil if none.
func (t *TraceID) segmentAt(ts NSTime) *Segment {
	for _, s := range t.segments {
		if ts >= s.start && ts <= s.EndTime() {
			return s
		}
	}
	return nil
}
