package record

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedStream(t *testing.T) ([]byte, []int) {
	t.Helper()
	v3, _, _, err := EncodeRecord(testHeader(0), ramp(30), EncodeOptions{Encoding: EncodingSteim2})
	require.NoError(t, err)
	v2, _, _, err := EncodeRecord(testHeader(SampleTime(0, 30, 40)), ramp(30), EncodeOptions{FormatVersion: 2, MaxRecordLength: 256})
	require.NoError(t, err)
	v3b, _, _, err := EncodeRecord(testHeader(SampleTime(0, 60, 40)), Series[float32]{1, 2}, EncodeOptions{})
	require.NoError(t, err)

	var buf []byte
	buf = append(buf, v3...)
	buf = append(buf, v2...)
	buf = append(buf, v3b...)
	return buf, []int{len(v3), len(v2), len(v3b)}
}

func TestBufferReader(t *testing.T) {
	buf, lengths := mixedStream(t)
	r := NewBufferReader(buf, DecodeOptions{UnpackData: true})

	var off int64
	for i, n := range lengths {
		rec, err := r.Next()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, off, rec.Offset)
		assert.Equal(t, n, rec.RecordLength)
		off += int64(n)
	}
	_, err := r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamReader(t *testing.T) {
	buf, lengths := mixedStream(t)
	r := NewStreamReader(bytes.NewReader(buf), DecodeOptions{UnpackData: true})

	versions := []uint8{}
	for rec, err := range All(r) {
		require.NoError(t, err)
		versions = append(versions, rec.FormatVersion)
	}
	assert.Equal(t, []uint8{3, 2, 3}, versions)
	assert.Equal(t, int64(lengths[0]+lengths[1]+lengths[2]), r.Offset())
}

func TestReaders_Truncated(t *testing.T) {
	buf, lengths := mixedStream(t)
	buf = buf[:len(buf)-3]
	want := int64(lengths[0] + lengths[1])

	for name, r := range map[string]Reader{
		"buffer": NewBufferReader(buf, DecodeOptions{}),
		"stream": NewStreamReader(bytes.NewReader(buf), DecodeOptions{}),
	} {
		t.Run(name, func(t *testing.T) {
			var last error
			n := 0
			for _, err := range All(r) {
				if err != nil {
					last = err
					break
				}
				n++
			}
			assert.Equal(t, 2, n)
			var fe *FormatError
			require.True(t, errors.As(last, &fe))
			assert.Equal(t, want, fe.Offset)
		})
	}
}
