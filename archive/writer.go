package archive

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/blobstore"
	"github.com/hupe1980/mseed/internal/resource"
	"github.com/hupe1980/mseed/record"
	"golang.org/x/sync/errgroup"
)

// WriteStats counts what Write stored.
type WriteStats struct {
	Volumes int
	Records int
	Samples int64
	// RawBytes is the size of the packed records, Bytes the size stored.
	RawBytes int64
	Bytes    int64
	Names    []string
}

// Writer packs TraceLists into day volumes.
type Writer struct {
	store  blobstore.BlobStore
	opts   options
	budget *resource.Budget
}

// NewWriter creates a Writer on store.
func NewWriter(store blobstore.BlobStore, optFns ...Option) *Writer {
	o := applyOptions(optFns)
	return &Writer{store: store, opts: o, budget: o.budget()}
}

type pendingVolume struct {
	key     dayKey
	buf     bytes.Buffer
	records int
}

// Write packs l and stores one new volume per SourceID and day. With
// RemovePacked in the pack options the packed samples leave l even when
// storing fails.
func (w *Writer) Write(ctx context.Context, l *mseed.TraceList) (WriteStats, error) {
	var stats WriteStats

	pending := make(map[dayKey]*pendingVolume)
	gen := l.Generate(w.opts.pack)
	for raw, err := range gen.Records() {
		if err != nil {
			return stats, err
		}
		rec, err := record.Decode(raw, record.DecodeOptions{SkipCRC: true})
		if err != nil {
			return stats, fmt.Errorf("archive: %w", err)
		}
		k := dayOf(rec.SourceID, rec.StartTime)
		v, ok := pending[k]
		if !ok {
			v = &pendingVolume{key: k}
			pending[k] = v
		}
		v.buf.Write(raw)
		v.records++
	}
	packed := gen.Stats()
	stats.Records = packed.Records
	stats.Samples = packed.Samples
	stats.RawBytes = packed.Bytes

	keys := slices.SortedFunc(maps.Keys(pending), dayKey.compare)
	names := make([]string, len(keys))
	sizes := make([]int64, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		g.Go(func() error {
			if err := w.budget.AcquireWorker(gctx); err != nil {
				return err
			}
			defer w.budget.ReleaseWorker()

			name, n, err := w.store1(gctx, pending[k])
			names[i], sizes[i] = name, n
			return err
		})
	}
	err := g.Wait()

	for i, name := range names {
		if name == "" {
			continue
		}
		stats.Volumes++
		stats.Bytes += sizes[i]
		stats.Names = append(stats.Names, name)
	}
	return stats, err
}

func (w *Writer) store1(ctx context.Context, v *pendingVolume) (string, int64, error) {
	seq, err := w.nextSeq(ctx, v.key)
	if err != nil {
		return "", 0, err
	}
	name := v.key.volumeName(w.opts.prefix, seq, w.opts.compression)

	data, err := compressVolume(v.buf.Bytes(), w.opts.compression)
	if err != nil {
		return "", 0, fmt.Errorf("archive: compress %s: %w", name, err)
	}
	if err := w.budget.WaitIO(ctx, len(data)); err != nil {
		return "", 0, err
	}
	if err := w.store.Put(ctx, name, data); err != nil {
		w.opts.logger.Error("archive volume write failed", "volume", name, "error", err)
		return "", 0, fmt.Errorf("archive: put %s: %w", name, err)
	}

	w.opts.logger.WithSourceID(v.key.sid).Debug("archive volume written",
		"volume", name,
		"records", v.records,
		"bytes", len(data),
		"compression", w.opts.compression.String(),
	)
	return name, int64(len(data)), nil
}

// nextSeq returns one past the highest sequence number in the day directory.
func (w *Writer) nextSeq(ctx context.Context, k dayKey) (int, error) {
	names, err := w.store.List(ctx, k.dir(w.opts.prefix))
	if err != nil {
		return 0, fmt.Errorf("archive: list %s: %w", k.dir(w.opts.prefix), err)
	}
	seq := 0
	for _, name := range names {
		base := path.Base(name)
		if i := strings.Index(base, volumeExt); i > 0 {
			if n, err := strconv.Atoi(base[:i]); err == nil && n > seq {
				seq = n
			}
		}
	}
	return seq + 1, nil
}
