// Package testutil provides testing utilities for mseed.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic waveform generators so that encoded records are
// reproducible across runs.
//
// # Sine Waves
//
//	s := testutil.SineInt32(2000, 500, 40)   // 2000 samples, amplitude 500, 40 samples per cycle
//	f := testutil.SineFloat64(100, 1, 25)
//
// # Noisy Data
//
//	rng := testutil.NewRNG(seed)
//	s := rng.NoisySineInt32(2000, 500, 40, 10)
package testutil
