package mseed

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/mseed/record"
	"github.com/hupe1980/mseed/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packed returns 500 samples per channel for three channels in 241-sample
// records, sidA first.
func packed(t *testing.T) ([]byte, map[SourceID]Series[int32]) {
	t.Helper()
	l, data := threeChannels(t, 500)
	var buf bytes.Buffer
	_, err := l.WriteTo(&buf, PackOptions{RecordLength: int32Capacity(sidA, 241), Encoding: record.EncodingInt32})
	require.NoError(t, err)
	return buf.Bytes(), data
}

func TestReadBuffer(t *testing.T) {
	buf, data := packed(t)

	l := New()
	n, err := l.ReadBuffer(buf, ReadOptions{UnpackData: true})
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, 3, l.Len())
	for sid, want := range data {
		seg := onlySegment(t, l, sid)
		assert.True(t, seg.Materialized())
		assert.True(t, record.Equal(want, seg.Samples()))
	}
	assert.Equal(t, int64(3*500*4), l.MemoryInUse())
}

func TestReadStream(t *testing.T) {
	buf, data := packed(t)

	l := New()
	n, err := l.ReadStream(bytes.NewReader(buf), ReadOptions{UnpackData: true})
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.True(t, record.Equal(data[sidB], onlySegment(t, l, sidB).Samples()))
}

func TestReadBuffer_StopsAtInvalidRecord(t *testing.T) {
	buf, _ := packed(t)
	bad := append(bytes.Clone(buf[:2*1023]), []byte("not a record at all, just some trailing bytes")...)

	l := New()
	n, err := l.ReadBuffer(bad, ReadOptions{UnpackData: true})
	require.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(482), onlySegment(t, l, sidA).SampleCount())
}

func TestReadBuffer_HeaderOnly(t *testing.T) {
	buf, _ := packed(t)

	l, err := FromBuffer(buf, ReadOptions{})
	require.NoError(t, err)

	seg := onlySegment(t, l, sidA)
	assert.Equal(t, int64(500), seg.SampleCount())
	assert.Equal(t, 0, seg.NumSamples())
	assert.False(t, seg.Materialized())
	assert.Equal(t, int64(0), l.MemoryInUse())
	assert.ErrorIs(t, l.Materialize(seg), ErrConfiguration)
}

func TestRecordList(t *testing.T) {
	buf, data := packed(t)

	l, err := FromBuffer(buf, ReadOptions{RecordList: true})
	require.NoError(t, err)

	seg := onlySegment(t, l, sidA)
	assert.False(t, seg.Materialized())
	assert.Equal(t, int64(500), seg.SampleCount())
	ptrs := seg.RecordList()
	require.Len(t, ptrs, 3)
	assert.Equal(t, int64(0), ptrs[0].Offset)
	assert.Equal(t, int64(1023), ptrs[1].Offset)
	assert.Equal(t, at(241), ptrs[1].Header.StartTime)

	// Reading the same records again adds nothing.
	_, err = l.ReadBuffer(buf, ReadOptions{RecordList: true})
	require.NoError(t, err)
	assert.Len(t, onlySegment(t, l, sidA).RecordList(), 3)

	require.NoError(t, l.Materialize(seg))
	assert.True(t, record.Equal(data[sidA], seg.Samples()))
	assert.Equal(t, int64(500*4), l.MemoryInUse())
	require.NoError(t, l.Materialize(seg))

	require.NoError(t, l.MaterializeAll())
	for sid, want := range data {
		assert.True(t, record.Equal(want, onlySegment(t, l, sid).Samples()))
	}
	assert.Equal(t, int64(3*500*4), l.MemoryInUse())
}

func TestRecordList_RollingBuffer(t *testing.T) {
	data := testutil.Ramp(250, 0)
	write := func(from, to int64) []byte {
		l := New()
		_, err := l.AddData(sidA, data[from:to], 40, at(from), 1)
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = l.WriteTo(&buf, PackOptions{RecordLength: int32Capacity(sidA, 50), Encoding: record.EncodingInt32})
		require.NoError(t, err)
		return buf.Bytes()
	}
	first, second := write(0, 150), write(150, 250)
	ropts := ReadOptions{UnpackData: true, RecordList: true}

	l := New()
	_, err := l.ReadBuffer(first, ropts)
	require.NoError(t, err)
	assert.Len(t, onlySegment(t, l, sidA).RecordList(), 3)

	stats, err := l.Pack(func([]byte) error { return nil }, PackOptions{
		RecordLength: int32Capacity(sidA, 100),
		Encoding:     record.EncodingInt32,
		RemovePacked: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), stats.Samples)

	// The next records continue the partly drained segment.
	_, err = l.ReadBuffer(second, ropts)
	require.NoError(t, err)
	seg := onlySegment(t, l, sidA)
	assert.Equal(t, at(100), seg.StartTime())
	assert.Equal(t, int64(150), seg.SampleCount())
	assert.True(t, record.Equal(data[100:], seg.Samples()))
	assert.Empty(t, seg.RecordList())
}

func TestReadFile_MaterializeAllOrNothing(t *testing.T) {
	buf, _ := packed(t)
	path := filepath.Join(t.TempDir(), "data.mseed")
	require.NoError(t, os.WriteFile(path, buf, 0o600))

	metrics := &BasicMetricsCollector{}
	l, err := FromFile(path, ReadOptions{RecordList: true}, WithMetricsCollector(metrics))
	require.NoError(t, err)
	seg := onlySegment(t, l, sidA)

	// Corrupt the payload of the second record of sidA.
	corrupt := bytes.Clone(buf)
	corrupt[1023+200] ^= 0xff
	require.NoError(t, os.WriteFile(path, corrupt, 0o600))

	err = l.Materialize(seg)
	require.ErrorIs(t, err, ErrFormat)
	assert.False(t, seg.Materialized())
	assert.Equal(t, int64(0), l.MemoryInUse())
	assert.Equal(t, int64(1), metrics.GetStats().MaterializeErrors)

	require.NoError(t, os.WriteFile(path, buf, 0o600))
	require.NoError(t, l.Materialize(seg))
	assert.Equal(t, 500, seg.NumSamples())
}

func TestReadFile_Missing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.mseed"), ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadBuffer_Diagnostics(t *testing.T) {
	buf, _ := packed(t)
	bad := bytes.Clone(buf[:1023])
	bad[500] ^= 0xff

	diag := record.NewDiagnostics(0)
	l := New(WithDiagnostics(diag))
	_, err := l.ReadBuffer(bad, ReadOptions{UnpackData: true})
	require.ErrorIs(t, err, ErrFormat)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.NotEmpty(t, fe.Diagnostics)
	assert.Equal(t, 0, diag.Len())

	_, err = l.ReadBuffer(bad, ReadOptions{UnpackData: true, SkipCRC: true})
	assert.NoError(t, err)
}

func TestLogger(t *testing.T) {
	var out strings.Builder
	logger := NewLogger(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l := New(WithLogger(logger))
	_, err := l.AddData(sidA, Series[int32]{1, 2, 3}, 40, t0, 1)
	require.NoError(t, err)
	_, err = l.AddData(sidA, Series[int32]{1, 2, 3}, 40, t0, 1)
	require.NoError(t, err)

	logged := out.String()
	assert.Contains(t, logged, `"msg":"ingest completed"`)
	assert.Contains(t, logged, `"msg":"overlapping data resolved"`)
	assert.Contains(t, logged, `"source_id":"FDSN:XX_STA1__B_H_Z"`)
}
