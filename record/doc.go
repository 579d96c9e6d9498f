// Package record is the miniSEED record codec.
//
// It decodes a byte buffer into a Header plus optionally decoded Samples, and
// encodes a header and a sample run into one or more records honoring a
// maximum record length and a format version.
//
// # Formats
//
//   - Version 3: variable-length records, little-endian fixed header of 40
//     bytes, nanosecond time, CRC-32C over the whole record, optional JSON
//     extra headers.
//   - Version 2: power-of-two fixed-length records, big-endian SEED fixed
//     header with blockettes 1000 and 1001, microsecond time.
//
// # Encodings
//
// Text, 16-bit and 32-bit integers, 32-bit and 64-bit IEEE floats, Steim-1
// and Steim-2 differences. 8-bit and 64-bit integer sample runs are valid in
// memory but cannot be encoded.
//
// # Diagnostics
//
// Every decode and encode accepts an optional *Diagnostics collector. Warnings
// are appended to it, and a FormatError drains it into its Diagnostics field
// so the caller sees why a record was rejected. Collectors are owned by the
// caller; nothing is stored globally.
package record
