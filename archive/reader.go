package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/blobstore"
	"github.com/hupe1980/mseed/internal/cache"
	"github.com/hupe1980/mseed/internal/resource"
	"golang.org/x/sync/errgroup"
)

// Query selects volumes. The zero Query selects every volume.
type Query struct {
	// SourceID restricts the result to one channel.
	SourceID mseed.SourceID
	// Window restricts the result to volumes whose day overlaps it. Volumes
	// are matched by the day their records start on. The zero Window
	// selects every day.
	Window mseed.Window
}

// LoadStats counts what Load read.
type LoadStats struct {
	Volumes int
	Records int
	Bytes   int64
}

// Reader lists and loads volumes.
type Reader struct {
	store  blobstore.BlobStore
	opts   options
	budget *resource.Budget
	cache  *cache.LRU // nil if disabled
}

// NewReader creates a Reader on store. It honours WithPrefix, WithLogger,
// WithIOLimit, WithConcurrency, WithCache and WithMemoryLimit.
func NewReader(store blobstore.BlobStore, optFns ...Option) *Reader {
	o := applyOptions(optFns)
	r := &Reader{store: store, opts: o, budget: o.budget()}
	if o.cacheBytes > 0 {
		r.cache = cache.New(o.cacheBytes, r.budget)
	}
	return r
}

// CacheStats returns the volume cache hit and miss counts.
func (r *Reader) CacheStats() (hits, misses int64) {
	if r.cache == nil {
		return 0, 0
	}
	return r.cache.Stats()
}

// Volumes returns the volumes matching q ordered by SourceID, day and
// sequence number. Blobs that are not volumes are skipped.
func (r *Reader) Volumes(ctx context.Context, q Query) ([]Volume, error) {
	prefix := r.opts.prefix
	if q.SourceID != "" {
		prefix = path.Join(prefix, strings.TrimPrefix(q.SourceID.String(), mseed.SourceIDPrefix)) + "/"
	}
	names, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("archive: list %q: %w", prefix, err)
	}

	var vols []Volume
	for _, name := range names {
		v, err := parseVolumeName(r.opts.prefix, name)
		if err != nil {
			r.opts.logger.Debug("archive skipping blob", "name", name, "error", err)
			continue
		}
		if q.SourceID != "" && v.SourceID != q.SourceID {
			continue
		}
		dayStart := mseed.NSTimeFromTime(v.Day)
		dayEnd := mseed.NSTimeFromTime(v.Day.Add(24*time.Hour)) - 1
		if q.Window != (mseed.Window{}) && !q.Window.Overlaps(dayStart, dayEnd) {
			continue
		}
		vols = append(vols, v)
	}
	return vols, nil
}

// ReadVolume returns the uncompressed records of v. The result must not be
// modified when the Reader caches volumes.
func (r *Reader) ReadVolume(ctx context.Context, v Volume) ([]byte, error) {
	if r.cache != nil {
		if raw, ok := r.cache.Get(v.Name); ok {
			return raw, nil
		}
	}
	data, err := blobstore.ReadAll(ctx, r.store, v.Name)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", v.Name, err)
	}
	if err := r.budget.WaitIO(ctx, len(data)); err != nil {
		return nil, err
	}
	raw, err := decompressVolume(data, v.Compression)
	if err != nil {
		return nil, fmt.Errorf("archive: decompress %s: %w", v.Name, err)
	}
	if r.cache != nil {
		r.cache.Set(v.Name, raw)
	}
	return raw, nil
}

// Load fetches vols concurrently and adds their records to l in the order
// given. Nothing is added if any volume cannot be fetched or decoded.
func (r *Reader) Load(ctx context.Context, l *mseed.TraceList, vols []Volume, ropts mseed.ReadOptions) (LoadStats, error) {
	var stats LoadStats

	data := make([][]byte, len(vols))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range vols {
		g.Go(func() error {
			if err := r.budget.AcquireWorker(gctx); err != nil {
				return err
			}
			defer r.budget.ReleaseWorker()

			raw, err := r.ReadVolume(gctx, v)
			data[i] = raw
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// Every volume must decode before l changes.
	scratch := mseed.New()
	for i, raw := range data {
		if _, err := scratch.ReadBuffer(raw, ropts); err != nil {
			return stats, fmt.Errorf("archive: load %s: %w", vols[i].Name, err)
		}
	}

	for i, raw := range data {
		n, err := l.ReadBuffer(raw, ropts)
		stats.Records += n
		if err != nil {
			return stats, fmt.Errorf("archive: load %s: %w", vols[i].Name, err)
		}
		stats.Volumes++
		stats.Bytes += int64(len(raw))
	}
	r.opts.logger.Debug("archive volumes loaded", "volumes", stats.Volumes, "records", stats.Records)
	return stats, nil
}
