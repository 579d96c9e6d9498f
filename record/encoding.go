package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encoding is the data encoding code stored in a record header.
type Encoding uint8

const (
	EncodingText    Encoding = 0
	EncodingInt16   Encoding = 1
	EncodingInt32   Encoding = 3
	EncodingFloat32 Encoding = 4
	EncodingFloat64 Encoding = 5
	EncodingSteim1  Encoding = 10
	EncodingSteim2  Encoding = 11
)

func (e Encoding) String() string {
	switch e {
	case EncodingText:
		return "TEXT"
	case EncodingInt16:
		return "INT16"
	case EncodingInt32:
		return "INT32"
	case EncodingFloat32:
		return "FLOAT32"
	case EncodingFloat64:
		return "FLOAT64"
	case EncodingSteim1:
		return "STEIM1"
	case EncodingSteim2:
		return "STEIM2"
	default:
		return fmt.Sprintf("Encoding(%d)", uint8(e))
	}
}

// ParseEncoding parses an encoding name as printed by String, case
// insensitive, or its numeric code.
func ParseEncoding(s string) (Encoding, error) {
	for _, e := range []Encoding{EncodingText, EncodingInt16, EncodingInt32, EncodingFloat32, EncodingFloat64, EncodingSteim1, EncodingSteim2} {
		if strings.EqualFold(s, e.String()) || s == strconv.Itoa(int(e)) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown encoding %q", s)
}

// SampleType returns the type samples decode to, SampleTypeUnknown if the
// encoding is not supported.
func (e Encoding) SampleType() SampleType {
	switch e {
	case EncodingText:
		return SampleTypeText
	case EncodingInt16:
		return SampleTypeInt16
	case EncodingInt32, EncodingSteim1, EncodingSteim2:
		return SampleTypeInt32
	case EncodingFloat32:
		return SampleTypeFloat32
	case EncodingFloat64:
		return SampleTypeFloat64
	default:
		return SampleTypeUnknown
	}
}

// SampleSize returns the encoded size of one sample, 0 for compressed encodings.
func (e Encoding) SampleSize() int {
	switch e {
	case EncodingText:
		return 1
	case EncodingInt16:
		return 2
	case EncodingInt32, EncodingFloat32:
		return 4
	case EncodingFloat64:
		return 8
	default:
		return 0
	}
}

// IsSteim reports whether e is a Steim difference encoding.
func (e Encoding) IsSteim() bool { return e == EncodingSteim1 || e == EncodingSteim2 }

// DefaultEncoding returns the encoding used for t when none is requested.
func DefaultEncoding(t SampleType) (Encoding, error) {
	switch t {
	case SampleTypeText:
		return EncodingText, nil
	case SampleTypeInt16:
		return EncodingInt16, nil
	case SampleTypeInt32:
		return EncodingInt32, nil
	case SampleTypeFloat32:
		return EncodingFloat32, nil
	case SampleTypeFloat64:
		return EncodingFloat64, nil
	default:
		return 0, fmt.Errorf("no miniSEED encoding for %v samples", t)
	}
}

// resolveEncoding picks the encoding for t. EncodingText doubles as "auto"
// because text is only valid for text samples.
func resolveEncoding(requested Encoding, t SampleType) (Encoding, error) {
	if requested == EncodingText {
		return DefaultEncoding(t)
	}
	if requested.SampleType() != t {
		return 0, fmt.Errorf("encoding %v cannot hold %v samples", requested, t)
	}
	return requested, nil
}

// encodeFixed writes n samples of a fixed-width encoding into dst.
func encodeFixed(dst []byte, samples Samples, enc Encoding, order binary.ByteOrder) {
	switch s := samples.(type) {
	case Series[uint8]:
		copy(dst, s)
	case Series[int16]:
		for i, v := range s {
			order.PutUint16(dst[i*2:], uint16(v))
		}
	case Series[int32]:
		for i, v := range s {
			order.PutUint32(dst[i*4:], uint32(v))
		}
	case Series[float32]:
		for i, v := range s {
			order.PutUint32(dst[i*4:], math.Float32bits(v))
		}
	case Series[float64]:
		for i, v := range s {
			order.PutUint64(dst[i*8:], math.Float64bits(v))
		}
	}
}

// decodeFixed decodes n samples of a fixed-width encoding from src.
func decodeFixed(src []byte, n int, enc Encoding, order binary.ByteOrder) (Samples, error) {
	size := enc.SampleSize()
	if size == 0 {
		return nil, fmt.Errorf("encoding %v is not fixed width", enc)
	}
	if len(src) < n*size {
		return nil, fmt.Errorf("data payload of %d bytes too short for %d %v samples", len(src), n, enc)
	}
	switch enc {
	case EncodingText:
		return append(Series[uint8](nil), src[:n]...), nil
	case EncodingInt16:
		out := make(Series[int16], n)
		for i := range out {
			out[i] = int16(order.Uint16(src[i*2:]))
		}
		return out, nil
	case EncodingInt32:
		out := make(Series[int32], n)
		for i := range out {
			out[i] = int32(order.Uint32(src[i*4:]))
		}
		return out, nil
	case EncodingFloat32:
		out := make(Series[float32], n)
		for i := range out {
			out[i] = math.Float32frombits(order.Uint32(src[i*4:]))
		}
		return out, nil
	default:
		out := make(Series[float64], n)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(src[i*8:]))
		}
		return out, nil
	}
}

// decodeData decodes the data payload of a record.
func decodeData(data []byte, n int, enc Encoding, order binary.ByteOrder) (Samples, error) {
	switch enc {
	case EncodingSteim1:
		return decodeSteim1(data, n, order)
	case EncodingSteim2:
		return decodeSteim2(data, n, order)
	case EncodingText, EncodingInt16, EncodingInt32, EncodingFloat32, EncodingFloat64:
		return decodeFixed(data, n, enc, order)
	default:
		return nil, fmt.Errorf("unsupported encoding %v", enc)
	}
}
