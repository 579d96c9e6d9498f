package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/mseed"
	"github.com/hupe1980/mseed/blobstore"
	"github.com/hupe1980/mseed/record"
	"github.com/hupe1980/mseed/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sidA = mseed.MustParseSourceID("FDSN:XX_STA1__B_H_Z")
	sidB = mseed.MustParseSourceID("FDSN:XX_STA2__B_H_Z")
	// Two minutes of 1 Hz data across the 2024-01-01 midnight.
	lateStart = mseed.MustParseTime("2024-01-01T23:59:00Z")
)

// smallRecords packs 30 int32 samples per v3 record.
var smallRecords = mseed.PackOptions{
	RecordLength: 40 + len(sidA) + 4*30,
	Encoding:     record.EncodingInt32,
	FlushData:    true,
}

func midnightList(t *testing.T) (*mseed.TraceList, map[mseed.SourceID]mseed.Series[int32]) {
	t.Helper()
	l := mseed.New()
	data := map[mseed.SourceID]mseed.Series[int32]{
		sidA: testutil.SineInt32(120, 500, 20),
		sidB: testutil.Ramp(120, -60),
	}
	for sid, s := range data {
		_, err := l.AddData(sid, s, 1, lateStart, 1)
		require.NoError(t, err)
	}
	return l, data
}

func TestWriter_DayVolumes(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	l, _ := midnightList(t)

	w := NewWriter(store, WithPrefix("net"), WithPackOptions(smallRecords))
	stats, err := w.Write(ctx, l)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Volumes)
	assert.Equal(t, 8, stats.Records)
	assert.Equal(t, int64(240), stats.Samples)
	assert.Equal(t, stats.RawBytes, stats.Bytes)
	assert.Equal(t, []string{
		"net/XX_STA1__B_H_Z/2024/001/000001.mseed",
		"net/XX_STA1__B_H_Z/2024/002/000001.mseed",
		"net/XX_STA2__B_H_Z/2024/001/000001.mseed",
		"net/XX_STA2__B_H_Z/2024/002/000001.mseed",
	}, stats.Names)

	// Packing without RemovePacked leaves the list intact.
	assert.Equal(t, 2, l.Len())

	// A second write appends new sequence numbers.
	stats, err = w.Write(ctx, l)
	require.NoError(t, err)
	assert.Contains(t, stats.Names, "net/XX_STA1__B_H_Z/2024/001/000002.mseed")

	names, err := store.List(ctx, "net/")
	require.NoError(t, err)
	assert.Len(t, names, 8)
}

func TestWriter_RemovePacked(t *testing.T) {
	l, _ := midnightList(t)
	opts := smallRecords
	opts.RemovePacked = true

	w := NewWriter(blobstore.NewMemoryStore(), WithPackOptions(opts))
	_, err := w.Write(context.Background(), l)
	require.NoError(t, err)
	assert.Zero(t, l.Len())
}

func TestArchive_RoundTrip(t *testing.T) {
	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	for storeName, store := range stores {
		for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(storeName+"/"+c.String(), func(t *testing.T) {
				ctx := context.Background()
				l, data := midnightList(t)
				prefix := "rt-" + c.String()

				stats, err := NewWriter(store,
					WithPrefix(prefix),
					WithCompression(c),
					WithPackOptions(smallRecords),
					WithConcurrency(2),
				).Write(ctx, l)
				require.NoError(t, err)
				for _, name := range stats.Names {
					assert.Contains(t, name, ".mseed"+c.Ext())
				}

				r := NewReader(store, WithPrefix(prefix))
				vols, err := r.Volumes(ctx, Query{})
				require.NoError(t, err)
				require.Len(t, vols, 4)

				dst := mseed.New()
				loaded, err := r.Load(ctx, dst, vols, mseed.ReadOptions{UnpackData: true})
				require.NoError(t, err)
				assert.Equal(t, 4, loaded.Volumes)
				assert.Equal(t, 8, loaded.Records)
				assert.Equal(t, stats.RawBytes, loaded.Bytes)

				for sid, want := range data {
					tr, err := dst.Lookup(sid)
					require.NoError(t, err)
					segs := tr.Segments()
					require.Len(t, segs, 1)
					assert.Equal(t, lateStart, segs[0].StartTime())
					assert.Equal(t, want, segs[0].Samples())
				}
			})
		}
	}
}

func TestReader_Query(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	l, _ := midnightList(t)
	_, err := NewWriter(store, WithPackOptions(smallRecords)).Write(ctx, l)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "README", []byte("not a volume")))

	r := NewReader(store)

	vols, err := r.Volumes(ctx, Query{SourceID: sidB})
	require.NoError(t, err)
	require.Len(t, vols, 2)
	for _, v := range vols {
		assert.Equal(t, sidB, v.SourceID)
	}

	vols, err = r.Volumes(ctx, Query{Window: mseed.Since(mseed.MustParseTime("2024-01-02T00:00:10Z"))})
	require.NoError(t, err)
	require.Len(t, vols, 2)
	for _, v := range vols {
		assert.Equal(t, 2, v.Day.YearDay())
	}

	vols, err = r.Volumes(ctx, Query{SourceID: sidA, Window: mseed.Until(mseed.MustParseTime("2024-01-01T12:00:00Z"))})
	require.NoError(t, err)
	require.Len(t, vols, 1)
	assert.Equal(t, "XX_STA1__B_H_Z/2024/001/000001.mseed", vols[0].Name)

	// Loading only the second day starts at midnight.
	dst := mseed.New()
	vols, err = r.Volumes(ctx, Query{SourceID: sidA, Window: mseed.Since(mseed.MustParseTime("2024-01-02T00:00:00Z"))})
	require.NoError(t, err)
	_, err = r.Load(ctx, dst, vols, mseed.ReadOptions{UnpackData: true})
	require.NoError(t, err)
	tr, err := dst.Lookup(sidA)
	require.NoError(t, err)
	assert.Equal(t, mseed.MustParseTime("2024-01-02T00:00:00Z"), tr.Earliest())
	assert.Equal(t, int64(60), tr.SampleCount())
}

func TestReader_LoadMissing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	r := NewReader(store)

	dst := mseed.New()
	_, err := r.Load(ctx, dst, []Volume{{Name: "XX_STA1__B_H_Z/2024/001/000001.mseed"}}, mseed.ReadOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, blobstore.ErrNotFound))
	assert.Zero(t, dst.Len())
}

func TestReader_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	name := "XX_STA1__B_H_Z/2024/001/000001.mseed.zst"
	require.NoError(t, store.Put(ctx, name, []byte{1, 2}))

	r := NewReader(store)
	vols, err := r.Volumes(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, vols, 1)

	_, err = r.Load(ctx, mseed.New(), vols, mseed.ReadOptions{})
	assert.ErrorIs(t, err, errShortBlock)
}

func TestReader_LoadAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	l, _ := midnightList(t)
	_, err := NewWriter(store, WithPackOptions(smallRecords)).Write(ctx, l)
	require.NoError(t, err)

	// A later volume whose records do not decode.
	require.NoError(t, store.Put(ctx, "XX_STA2__B_H_Z/2024/002/000009.mseed", []byte("not a miniSEED record, just bytes")))

	r := NewReader(store)
	vols, err := r.Volumes(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, vols, 5)
	assert.Equal(t, "XX_STA2__B_H_Z/2024/002/000009.mseed", vols[4].Name)

	dst := mseed.New()
	_, err = r.Load(ctx, dst, vols, mseed.ReadOptions{UnpackData: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrFormat)
	assert.Zero(t, dst.Len())
	assert.Zero(t, dst.MemoryInUse())

	// Without the broken volume everything loads.
	stats, err := r.Load(ctx, dst, vols[:4], mseed.ReadOptions{UnpackData: true})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Volumes)
	assert.Equal(t, 2, dst.Len())
}

func TestWriter_IOLimit(t *testing.T) {
	l, _ := midnightList(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context fails the rate limiter before anything is stored.
	store := blobstore.NewMemoryStore()
	_, err := NewWriter(store, WithIOLimit(1), WithPackOptions(smallRecords)).Write(ctx, l)
	require.Error(t, err)

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReader_Cache(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	l, _ := midnightList(t)
	_, err := NewWriter(store, WithPackOptions(smallRecords), WithCompression(CompressionZSTD)).Write(ctx, l)
	require.NoError(t, err)

	r := NewReader(store, WithCache(1<<20))
	vols, err := r.Volumes(ctx, Query{SourceID: sidA})
	require.NoError(t, err)
	require.Len(t, vols, 2)

	first, err := r.ReadVolume(ctx, vols[0])
	require.NoError(t, err)

	// Cached volumes no longer need the store.
	require.NoError(t, store.Delete(ctx, vols[0].Name))
	again, err := r.ReadVolume(ctx, vols[0])
	require.NoError(t, err)
	assert.Equal(t, first, again)

	hits, misses := r.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// A memory limit below the volume size disables caching.
	small := NewReader(store, WithCache(1<<20), WithMemoryLimit(1))
	_, err = small.ReadVolume(ctx, vols[1])
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, vols[1].Name))
	_, err = small.ReadVolume(ctx, vols[1])
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
