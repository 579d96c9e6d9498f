package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/mseed/record"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int32s returns n values uniformly distributed in [-limit, limit].
func (r *RNG) Int32s(n int, limit int32) record.Series[int32] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(record.Series[int32], n)
	for i := range out {
		out[i] = int32(r.rand.Int63n(2*int64(limit)+1) - int64(limit))
	}
	return out
}

// NoisySineInt32 returns SineInt32 with uniform noise in [-noise, noise]
// added to every sample.
func (r *RNG) NoisySineInt32(n int, amplitude float64, period int, noise int32) record.Series[int32] {
	s := SineInt32(n, amplitude, period)
	if noise <= 0 {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range s {
		s[i] += int32(r.rand.Int63n(2*int64(noise)+1) - int64(noise))
	}
	return s
}

func sine(i int, amplitude float64, period int) float64 {
	return amplitude * math.Sin(2*math.Pi*float64(i)/float64(period))
}

// SineInt32 returns n samples of a sine wave with the given amplitude and
// period in samples.
func SineInt32(n int, amplitude float64, period int) record.Series[int32] {
	out := make(record.Series[int32], n)
	for i := range out {
		out[i] = int32(math.Round(sine(i, amplitude, period)))
	}
	return out
}

// SineFloat32 is the float32 variant of SineInt32.
func SineFloat32(n int, amplitude float64, period int) record.Series[float32] {
	out := make(record.Series[float32], n)
	for i := range out {
		out[i] = float32(sine(i, amplitude, period))
	}
	return out
}

// SineFloat64 is the float64 variant of SineInt32.
func SineFloat64(n int, amplitude float64, period int) record.Series[float64] {
	out := make(record.Series[float64], n)
	for i := range out {
		out[i] = sine(i, amplitude, period)
	}
	return out
}

// Ramp returns n int32 samples counting up from first.
func Ramp(n int, first int32) record.Series[int32] {
	out := make(record.Series[int32], n)
	for i := range out {
		out[i] = first + int32(i)
	}
	return out
}
