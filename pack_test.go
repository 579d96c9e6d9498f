package mseed

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/mseed/record"
	"github.com/hupe1980/mseed/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// int32Capacity returns a v3 record length holding exactly n int32 samples
// for sid.
func int32Capacity(sid SourceID, n int) int {
	return 40 + len(sid) + 4*n
}

func threeChannels(t *testing.T, n int) (*TraceList, map[SourceID]Series[int32]) {
	t.Helper()
	l := New()
	data := make(map[SourceID]Series[int32])
	for i, sid := range []SourceID{sidA, sidB, sidC} {
		s := testutil.SineInt32(n, float64(100*(i+1)), 40)
		_, err := l.AddData(sid, s, 40, t0, 1)
		require.NoError(t, err)
		data[sid] = s
	}
	return l, data
}

func TestGenerate_RollingBuffer(t *testing.T) {
	l, data := threeChannels(t, 2000)
	opts := PackOptions{
		RecordLength: int32Capacity(sidA, 410),
		Encoding:     record.EncodingInt32,
		FlushData:    true,
		RemovePacked: true,
	}

	g := l.Generate(opts)
	var buf bytes.Buffer
	perSID := make(map[SourceID]int)
	var order []SourceID
	for g.Next() {
		rec, err := record.Decode(g.Record(), record.DecodeOptions{})
		require.NoError(t, err)
		perSID[rec.SourceID]++
		if n := len(order); n == 0 || order[n-1] != rec.SourceID {
			order = append(order, rec.SourceID)
		}
		buf.Write(g.Record())
	}
	require.NoError(t, g.Err())

	assert.Equal(t, 15, g.Stats().Records)
	assert.Equal(t, int64(6000), g.Stats().Samples)
	assert.Equal(t, int64(buf.Len()), g.Stats().Bytes)
	assert.Equal(t, map[SourceID]int{sidA: 5, sidB: 5, sidC: 5}, perSID)
	assert.Equal(t, []SourceID{sidA, sidB, sidC}, order)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.MemoryInUse())

	back, err := FromBuffer(buf.Bytes(), ReadOptions{UnpackData: true})
	require.NoError(t, err)
	for sid, want := range data {
		seg := onlySegment(t, back, sid)
		assert.Equal(t, t0, seg.StartTime())
		assert.True(t, record.Equal(want, seg.Samples()), sid)
	}
}

func TestGenerate_RollingBufferPerChunk(t *testing.T) {
	l := New()
	// Ten 100-sample chunks fill four records, the final flush a fifth.
	opts := PackOptions{
		RecordLength: int32Capacity(sidA, 210),
		Encoding:     record.EncodingInt32,
		RemovePacked: true,
	}
	sids := []SourceID{sidA, sidB, sidC}
	perSID := make(map[SourceID]int)
	handler := func(raw []byte) error {
		rec, err := record.Decode(raw, record.DecodeOptions{})
		if err != nil {
			return err
		}
		perSID[rec.SourceID]++
		return nil
	}

	var added, packed int64
	for i := range 10 {
		for j, sid := range sids {
			chunk := testutil.SineInt32(100, float64(100*(j+1)), 40)
			_, err := l.AddData(sid, chunk, 40, at(int64(i*100)), 1)
			require.NoError(t, err)
			added += 100
		}
		stats, err := l.Pack(handler, opts)
		require.NoError(t, err)
		packed += stats.Samples
	}
	assert.Equal(t, map[SourceID]int{sidA: 4, sidB: 4, sidC: 4}, perSID)

	opts.FlushData = true
	stats, err := l.Pack(handler, opts)
	require.NoError(t, err)
	packed += stats.Samples

	assert.Equal(t, map[SourceID]int{sidA: 5, sidB: 5, sidC: 5}, perSID)
	assert.Equal(t, int64(3000), added)
	assert.Equal(t, added, packed)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.MemoryInUse())
}

func TestGenerate_KeepsPartialRecords(t *testing.T) {
	l, _ := threeChannels(t, 2000)
	opts := PackOptions{
		RecordLength: int32Capacity(sidA, 410),
		Encoding:     record.EncodingInt32,
		RemovePacked: true,
	}

	stats, err := l.Pack(func([]byte) error { return nil }, opts)
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Records)
	assert.Equal(t, int64(3*1640), stats.Samples)

	for _, sid := range []SourceID{sidA, sidB, sidC} {
		seg := onlySegment(t, l, sid)
		assert.Equal(t, int64(360), seg.SampleCount())
		assert.Equal(t, at(1640), seg.StartTime())
	}
	assert.Equal(t, int64(3*360*4), l.MemoryInUse())

	// More data arrives: the remainder joins it and the next full records go out.
	more := testutil.SineInt32(2000, 100, 40)
	_, err = l.AddData(sidA, more, 40, at(2000), 1)
	require.NoError(t, err)

	stats, err = l.Pack(func([]byte) error { return nil }, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, int64(310), onlySegment(t, l, sidA).SampleCount())
	assert.Equal(t, int64(360), onlySegment(t, l, sidB).SampleCount())
}

func TestGenerate_WithoutRemoval(t *testing.T) {
	l, _ := threeChannels(t, 1000)
	opts := PackOptions{FlushData: true}

	var first, second bytes.Buffer
	_, err := l.WriteTo(&first, opts)
	require.NoError(t, err)
	_, err = l.WriteTo(&second, opts)
	require.NoError(t, err)

	assert.Equal(t, first.Bytes(), second.Bytes())
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, int64(1000), onlySegment(t, l, sidA).SampleCount())
}

func TestGenerate_FlushIdle(t *testing.T) {
	tests := []struct {
		name    string
		idle    time.Duration
		records int
	}{
		{"Idle", time.Second, 1},
		{"Recent", 10 * time.Second, 0},
		{"Disabled", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			_, err := l.AddData(sidA, testutil.Ramp(100, 0), 40, t0, 1)
			require.NoError(t, err)

			stats, err := l.Pack(func([]byte) error { return nil }, PackOptions{
				FlushIdle:    tt.idle,
				Now:          at(99) + NSTime(2*time.Second),
				RemovePacked: true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.records, stats.Records)
			assert.Equal(t, tt.records == 0, l.Len() == 1)
		})
	}
}

func TestGenerate_EarlyStop(t *testing.T) {
	l := New()
	_, err := l.AddData(sidA, testutil.Ramp(2000, 0), 40, t0, 1)
	require.NoError(t, err)

	g := l.Generate(PackOptions{
		RecordLength: int32Capacity(sidA, 410),
		Encoding:     record.EncodingInt32,
		FlushData:    true,
		RemovePacked: true,
	})
	require.True(t, g.Next())

	seg := onlySegment(t, l, sidA)
	assert.Equal(t, int64(2000-410), seg.SampleCount())
	assert.Equal(t, at(410), seg.StartTime())
	assert.Equal(t, int32(410), seg.Samples().(Series[int32])[0])
}

func TestGenerate_RecordsIterator(t *testing.T) {
	l, _ := threeChannels(t, 100)

	n := 0
	for raw, err := range l.Generate(PackOptions{FlushData: true}).Records() {
		require.NoError(t, err)
		require.NoError(t, record.Validate(raw))
		n++
	}
	assert.Equal(t, 3, n)
}

func TestPack_EncodeFailureKeepsData(t *testing.T) {
	l := New()
	_, err := l.AddData(sidA, Series[int64]{1, 2, 3}, 40, t0, 1)
	require.NoError(t, err)

	_, err = l.Pack(func([]byte) error { return nil }, PackOptions{FlushData: true, RemovePacked: true})
	require.ErrorIs(t, err, ErrFormat)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(3), onlySegment(t, l, sidA).SampleCount())
}

func TestPack_HandlerFailureKeepsRecord(t *testing.T) {
	l := New()
	_, err := l.AddData(sidA, testutil.Ramp(2000, 0), 40, t0, 1)
	require.NoError(t, err)

	errSink := errors.New("sink closed")
	calls := 0
	stats, err := l.Pack(func([]byte) error {
		calls++
		if calls == 2 {
			return errSink
		}
		return nil
	}, PackOptions{
		RecordLength: int32Capacity(sidA, 410),
		Encoding:     record.EncodingInt32,
		FlushData:    true,
		RemovePacked: true,
	})
	require.ErrorIs(t, err, errSink)
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, int64(2000-410), onlySegment(t, l, sidA).SampleCount())

	_, err = l.Pack(nil, PackOptions{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPack_V2Steim(t *testing.T) {
	l := New()
	data := testutil.NewRNG(11).NoisySineInt32(3000, 2000, 80, 20)
	_, err := l.AddData(sidA, data, 40, t0, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := l.WriteTo(&buf, PackOptions{
		FormatVersion: 2,
		RecordLength:  512,
		Encoding:      record.EncodingSteim2,
		RemovePacked:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Len()%512)
	assert.Equal(t, buf.Len()/512, stats.Records)

	recs := decodeAll(t, buf.Bytes())
	require.NotEmpty(t, recs)
	for _, rec := range recs {
		assert.Equal(t, uint8(2), rec.FormatVersion)
		assert.Equal(t, uint8(2), rec.PubVersion)
		assert.Equal(t, record.EncodingSteim2, rec.Encoding)
	}

	back, err := FromBuffer(buf.Bytes(), ReadOptions{UnpackData: true})
	require.NoError(t, err)
	assert.True(t, record.Equal(data, onlySegment(t, back, sidA).Samples()))
}

func TestPack_ExtraHeaders(t *testing.T) {
	l := New()
	_, err := l.AddData(sidA, testutil.Ramp(10, 0), 40, t0, 1)
	require.NoError(t, err)

	extra := []byte(`{"FDSN":{"Time":{"Quality":100}}}`)
	var buf bytes.Buffer
	_, err = l.WriteTo(&buf, PackOptions{ExtraHeaders: extra})
	require.NoError(t, err)

	recs := decodeAll(t, buf.Bytes())
	require.Len(t, recs, 1)
	assert.JSONEq(t, string(extra), string(recs[0].ExtraHeaders))
}

func TestPack_UnmaterializedSegment(t *testing.T) {
	src := New()
	_, err := src.AddData(sidA, testutil.Ramp(10, 0), 40, t0, 1)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = src.WriteTo(&buf, PackOptions{})
	require.NoError(t, err)

	l, err := FromBuffer(buf.Bytes(), ReadOptions{RecordList: true})
	require.NoError(t, err)

	_, err = l.WriteTo(&bytes.Buffer{}, PackOptions{})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mseed")

	l, data := threeChannels(t, 500)
	stats, err := l.WriteFile(path, false, PackOptions{RecordLength: 1024})
	require.NoError(t, err)
	assert.Positive(t, stats.Records)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, stats.Bytes, info.Size())

	_, err = l.WriteFile(path, false, PackOptions{})
	assert.ErrorIs(t, err, ErrFileExists)
	_, err = l.WriteFile(path, true, PackOptions{})
	assert.NoError(t, err)

	back, err := FromFile(path, ReadOptions{UnpackData: true})
	require.NoError(t, err)
	for sid, want := range data {
		assert.True(t, record.Equal(want, onlySegment(t, back, sid).Samples()))
	}
}

func TestPack_Metrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	l := New(WithMetricsCollector(metrics))
	_, err := l.AddData(sidA, testutil.Ramp(100, 0), 40, t0, 1)
	require.NoError(t, err)

	stats, err := l.WriteTo(&bytes.Buffer{}, PackOptions{RemovePacked: true})
	require.NoError(t, err)

	ms := metrics.GetStats()
	assert.Equal(t, int64(1), ms.IngestCount)
	assert.Equal(t, int64(100), ms.IngestSamples)
	assert.Equal(t, int64(stats.Records), ms.PackRecords)
	assert.Equal(t, int64(100), ms.PackSamples)
	assert.Equal(t, stats.Bytes, ms.PackBytes)
}
