// Package conv provides safe integer type conversion utilities.
//
// Use them where a length read from or written to a fixed-width field could
// overflow, e.g. the size fields of compressed archive volumes.
package conv
