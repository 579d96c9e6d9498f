package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSineInt32(t *testing.T) {
	s := SineInt32(80, 500, 40)

	require.Len(t, s, 80)
	assert.Equal(t, int32(0), s[0])
	assert.Equal(t, int32(500), s[10])
	assert.Equal(t, int32(0), s[20])
	assert.Equal(t, int32(-500), s[30])
	assert.Equal(t, s[:40], s[40:])
}

func TestSineFloat(t *testing.T) {
	f32 := SineFloat32(40, 2, 40)
	f64 := SineFloat64(40, 2, 40)

	require.Len(t, f32, 40)
	require.Len(t, f64, 40)
	assert.InDelta(t, 2.0, f64[10], 1e-12)
	assert.InDelta(t, float32(-2.0), f32[30], 1e-6)
}

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(4711).Int32s(100, 1000)
	b := NewRNG(4711).Int32s(100, 1000)

	assert.Equal(t, a, b)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, int32(-1000))
		assert.LessOrEqual(t, v, int32(1000))
	}
}

func TestRNGReset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.Intn(1 << 30)
	rng.Reset()

	assert.Equal(t, first, rng.Intn(1<<30))
	assert.Equal(t, int64(42), rng.Seed())
}

func TestNoisySineInt32(t *testing.T) {
	rng := NewRNG(7)
	clean := SineInt32(200, 500, 40)
	noisy := rng.NoisySineInt32(200, 500, 40, 5)

	require.Len(t, noisy, 200)
	for i := range noisy {
		assert.InDelta(t, clean[i], noisy[i], 5)
	}
}

func TestRamp(t *testing.T) {
	r := Ramp(5, -2)
	assert.Equal(t, []int32{-2, -1, 0, 1, 2}, []int32(r))
}
