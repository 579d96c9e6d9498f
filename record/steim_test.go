package record

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steimInput() Series[int32] {
	s := make(Series[int32], 0, 600)
	v := int32(0)
	for i := 0; i < 600; i++ {
		switch {
		case i%50 == 0:
			v += 100_000
		case i%7 == 0:
			v -= 3000
		case i%3 == 0:
			v += 90
		default:
			v += int32(i%5) - 2
		}
		s = append(s, v)
	}
	return s
}

func TestSteim_RoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingSteim1, EncodingSteim2} {
		t.Run(enc.String(), func(t *testing.T) {
			in := steimInput()
			res, err := encodeSteim(in, enc, 64*64, binary.BigEndian)
			require.NoError(t, err)
			require.Equal(t, len(in), res.packed)
			require.Zero(t, len(res.data)%steimFrameSize)

			out, err := decodeData(res.data, res.packed, enc, binary.BigEndian)
			require.NoError(t, err)
			assert.True(t, Equal(in, out))
		})
	}
}

func TestSteim_Capacity(t *testing.T) {
	constant := make(Series[int32], 100)
	for i := range constant {
		constant[i] = 5
	}

	res, err := encodeSteim(constant, EncodingSteim1, steimFrameSize, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, 13*4, res.packed)
	assert.True(t, res.full)

	res, err = encodeSteim(constant, EncodingSteim2, steimFrameSize, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, 13*7, res.packed)
	assert.True(t, res.full)

	res, err = encodeSteim(constant[:52], EncodingSteim1, steimFrameSize, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, 52, res.packed)
	assert.True(t, res.full, "exactly filled frame leaves no room")

	res, err = encodeSteim(constant[:10], EncodingSteim1, 4*steimFrameSize, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, 10, res.packed)
	assert.False(t, res.full)
	assert.Len(t, res.data, steimFrameSize)
}

func TestSteim_DifferenceRange(t *testing.T) {
	_, err := encodeSteim(Series[int32]{math.MaxInt32, math.MinInt32}, EncodingSteim1, 256, binary.BigEndian)
	require.ErrorIs(t, err, errSteimRange)

	_, err = encodeSteim(Series[int32]{0, 1 << 29}, EncodingSteim2, 256, binary.BigEndian)
	require.ErrorIs(t, err, errSteimRange)

	res, err := encodeSteim(Series[int32]{0, 1 << 29}, EncodingSteim1, 256, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, 2, res.packed)
}

func TestSteim_IntegrityCheck(t *testing.T) {
	in := Series[int32]{1, 2, 3, 4, 5, 6, 7, 8}
	res, err := encodeSteim(in, EncodingSteim2, 128, binary.BigEndian)
	require.NoError(t, err)

	// Corrupt Xn.
	binary.BigEndian.PutUint32(res.data[8:], 99)
	_, err = decodeData(res.data, len(in), EncodingSteim2, binary.BigEndian)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity")
}

func TestSteim_TooManySamples(t *testing.T) {
	res, err := encodeSteim(Series[int32]{1, 2, 3}, EncodingSteim1, 64, binary.BigEndian)
	require.NoError(t, err)

	_, err = decodeData(res.data, 10, EncodingSteim1, binary.BigEndian)
	require.Error(t, err)

	_, err = decodeData(res.data, math.MaxInt32, EncodingSteim1, binary.BigEndian)
	require.Error(t, err)
}
