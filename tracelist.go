package mseed

import (
	"cmp"
	"iter"
	"slices"

	"github.com/hupe1980/mseed/internal/resource"
)

type traceKey struct {
	sid     SourceID
	version uint8 // zero unless split by version
}

func (k traceKey) compare(o traceKey) int {
	if c := k.sid.Compare(o.sid); c != 0 {
		return c
	}
	return cmp.Compare(k.version, o.version)
}

// TraceList maps SourceIDs to their TraceIDs. Iteration is in SourceID
// order.
//
// A TraceList is not safe for concurrent use.
type TraceList struct {
	opts   options
	traces map[traceKey]*TraceID
	keys   []traceKey
	budget *resource.Budget
}

// New creates an empty TraceList.
func New(optFns ...Option) *TraceList {
	o := applyOptions(optFns)
	return &TraceList{
		opts:   o,
		traces: make(map[traceKey]*TraceID),
		budget: resource.New(resource.Config{MemoryLimitBytes: o.memoryLimit}),
	}
}

// Len returns the number of TraceIDs.
func (l *TraceList) Len() int { return len(l.keys) }

// SourceIDs returns the distinct SourceIDs in order.
func (l *TraceList) SourceIDs() []SourceID {
	out := make([]SourceID, 0, len(l.keys))
	for _, k := range l.keys {
		if n := len(out); n > 0 && out[n-1] == k.sid {
			continue
		}
		out = append(out, k.sid)
	}
	return out
}

// All iterates over the TraceIDs in order. The list must not be modified
// during iteration.
func (l *TraceList) All() iter.Seq[*TraceID] {
	return func(yield func(*TraceID) bool) {
		for _, k := range l.keys {
			if !yield(l.traces[k]) {
				return
			}
		}
	}
}

// At returns the i-th TraceID in order.
func (l *TraceList) At(i int) *TraceID { return l.traces[l.keys[i]] }

// Lookup returns the TraceID of sid. When the list is split by version the
// highest version is returned.
func (l *TraceList) Lookup(sid SourceID) (*TraceID, error) {
	i, found := slices.BinarySearchFunc(l.keys, traceKey{sid: sid, version: 255}, traceKey.compare)
	if found {
		return l.traces[l.keys[i]], nil
	}
	// i is past every key of sid; step back to the highest version.
	if i > 0 && l.keys[i-1].sid == sid {
		return l.traces[l.keys[i-1]], nil
	}
	return nil, &NoSuchSourceIDError{SourceID: sid}
}

// LookupVersion returns the TraceID of sid holding publication version
// version. It requires WithSplitVersion.
func (l *TraceList) LookupVersion(sid SourceID, version uint8) (*TraceID, error) {
	if !l.opts.splitVersion {
		return nil, &ConfigurationError{Op: "lookup version", Reason: "trace list is not split by publication version"}
	}
	if t, ok := l.traces[traceKey{sid: sid, version: version}]; ok {
		return t, nil
	}
	return nil, &NoSuchSourceIDError{SourceID: sid}
}

// Remove deletes every TraceID of sid.
func (l *TraceList) Remove(sid SourceID) error {
	found := false
	l.keys = slices.DeleteFunc(l.keys, func(k traceKey) bool {
		if k.sid != sid {
			return false
		}
		found = true
		t := l.traces[k]
		for _, seg := range t.segments {
			l.budget.Release(seg.byteSize())
		}
		delete(l.traces, k)
		return true
	})
	if !found {
		return &NoSuchSourceIDError{SourceID: sid}
	}
	return nil
}

// MemoryInUse returns the bytes of decoded samples held by the list.
func (l *TraceList) MemoryInUse() int64 { return l.budget.InUse() }

func (l *TraceList) keyFor(sid SourceID, version uint8) traceKey {
	k := traceKey{sid: sid}
	if l.opts.splitVersion {
		k.version = version
	}
	return k
}

func (l *TraceList) insert(k traceKey, t *TraceID) {
	i, found := slices.BinarySearchFunc(l.keys, k, traceKey.compare)
	if !found {
		l.keys = slices.Insert(l.keys, i, k)
	}
	l.traces[k] = t
}

// drop removes an empty TraceID from the list.
func (l *TraceList) drop(k traceKey) {
	if i, found := slices.BinarySearchFunc(l.keys, k, traceKey.compare); found {
		l.keys = slices.Delete(l.keys, i, i+1)
	}
	delete(l.traces, k)
}
