// Package resource bounds the memory held by buffered samples and the IO
// throughput of volume writers.
//
// A nil *Budget is valid and imposes no limits, so callers never need to
// special-case the unconfigured path.
package resource
