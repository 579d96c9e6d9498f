package record

import (
	"errors"
	"io"
)

const (
	// DefaultFormatVersion is the format version used when none is requested.
	DefaultFormatVersion = 3
	// DefaultRecordLength is the maximum record length used when none is requested.
	DefaultRecordLength = 4096
)

// DecodeOptions control Decode.
type DecodeOptions struct {
	// UnpackData decodes the sample payload in addition to the header.
	UnpackData bool
	// SkipCRC disables CRC-32C verification of v3 records.
	SkipCRC bool
	// Diagnostics receives warnings; nil discards them.
	Diagnostics *Diagnostics
}

// EncodeOptions control EncodeRecord and Encode.
type EncodeOptions struct {
	// FormatVersion is 2 or 3. Zero selects DefaultFormatVersion.
	FormatVersion uint8
	// MaxRecordLength bounds the length of each record. For v2 it is the
	// exact record length and must be a power of two. Zero selects
	// DefaultRecordLength.
	MaxRecordLength int
	// Encoding selects the data encoding. EncodingText (the zero value)
	// selects DefaultEncoding for the sample type.
	Encoding Encoding
	// SequenceNumber is written to v2 headers.
	SequenceNumber int
	// Diagnostics receives warnings; nil discards them.
	Diagnostics *Diagnostics
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.FormatVersion == 0 {
		o.FormatVersion = DefaultFormatVersion
	}
	if o.MaxRecordLength <= 0 {
		o.MaxRecordLength = DefaultRecordLength
	}
	return o
}

// Codec decodes and encodes single records.
type Codec interface {
	// Decode parses the record at the start of buf.
	Decode(buf []byte, opts DecodeOptions) (*Record, error)
	// EncodeRecord encodes the leading samples that fit into one record and
	// reports how many were packed and whether the record is full.
	EncodeRecord(h Header, samples Samples, opts EncodeOptions) (raw []byte, packed int, full bool, err error)
}

type standardCodec struct{}

// DefaultCodec implements Codec with Decode and EncodeRecord.
var DefaultCodec Codec = standardCodec{}

func (standardCodec) Decode(buf []byte, opts DecodeOptions) (*Record, error) {
	return Decode(buf, opts)
}

func (standardCodec) EncodeRecord(h Header, samples Samples, opts EncodeOptions) ([]byte, int, bool, error) {
	return EncodeRecord(h, samples, opts)
}

// Decode parses the record at the start of buf. Trailing bytes are ignored.
func Decode(buf []byte, opts DecodeOptions) (*Record, error) {
	version, _, err := Detect(buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, formatErrorf("decode", opts.Diagnostics, "truncated record of %d bytes", len(buf))
	}
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Diagnostics = append(opts.Diagnostics.Pop(), fe.Diagnostics...)
		}
		return nil, err
	}
	if version == 3 {
		return decodeV3(buf, opts)
	}
	return decodeV2(buf, opts)
}

// Validate fully decodes the record at the start of buf and discards it.
func Validate(buf []byte) error {
	_, err := Decode(buf, DecodeOptions{UnpackData: true})
	return err
}

// EncodeRecord encodes the leading samples of samples that fit into one
// record. full reports that the record has no room for another sample.
func EncodeRecord(h Header, samples Samples, opts EncodeOptions) (raw []byte, packed int, full bool, err error) {
	const op = "encode"
	opts = opts.withDefaults()
	if samples == nil {
		return nil, 0, false, formatErrorf(op, opts.Diagnostics, "no samples")
	}
	if h.SampleRate < 0 {
		return nil, 0, false, formatErrorf(op, opts.Diagnostics, "negative sample rate %v", h.SampleRate)
	}
	enc, err := resolveEncoding(opts.Encoding, samples.Type())
	if err != nil {
		return nil, 0, false, wrapFormatError(op, opts.Diagnostics, err, "unsupported encoding request")
	}
	switch opts.FormatVersion {
	case 3:
		return encodeV3(&h, samples, enc, opts)
	case 2:
		return encodeV2(&h, samples, enc, opts)
	default:
		return nil, 0, false, formatErrorf(op, opts.Diagnostics, "unsupported format version %d", opts.FormatVersion)
	}
}

// Encode encodes all of samples into as many records as needed, starting at
// h.StartTime.
func Encode(h Header, samples Samples, opts EncodeOptions) ([][]byte, error) {
	opts = opts.withDefaults()
	if samples == nil {
		return nil, formatErrorf("encode", opts.Diagnostics, "no samples")
	}
	var out [][]byte
	n := samples.Len()
	for off := 0; off < n || (n == 0 && len(out) == 0); {
		rh := h
		rh.StartTime = SampleTime(h.StartTime, int64(off), h.SampleRate)
		raw, packed, _, err := EncodeRecord(rh, samples.Slice(off, n), opts)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
		off += packed
		if opts.SequenceNumber > 0 {
			opts.SequenceNumber++
		}
	}
	return out, nil
}
