package record

import (
	"errors"
	"fmt"
)

// ErrSampleTypeMismatch is returned when combining runs of different types.
var ErrSampleTypeMismatch = errors.New("sample type mismatch")

// SampleType is the element type of a sample run.
type SampleType uint8

const (
	SampleTypeUnknown SampleType = iota
	SampleTypeText
	SampleTypeInt8
	SampleTypeInt16
	SampleTypeInt32
	SampleTypeInt64
	SampleTypeFloat32
	SampleTypeFloat64
)

// Size returns the in-memory size of one sample in bytes.
func (t SampleType) Size() int {
	switch t {
	case SampleTypeText, SampleTypeInt8:
		return 1
	case SampleTypeInt16:
		return 2
	case SampleTypeInt32, SampleTypeFloat32:
		return 4
	case SampleTypeInt64, SampleTypeFloat64:
		return 8
	default:
		return 0
	}
}

// Code returns the single-character type code used by libmseed based tools:
// 't' text, 'i' integer, 'f' float32, 'd' float64.
func (t SampleType) Code() byte {
	switch t {
	case SampleTypeText:
		return 't'
	case SampleTypeInt8, SampleTypeInt16, SampleTypeInt32, SampleTypeInt64:
		return 'i'
	case SampleTypeFloat32:
		return 'f'
	case SampleTypeFloat64:
		return 'd'
	default:
		return 0
	}
}

func (t SampleType) String() string {
	switch t {
	case SampleTypeText:
		return "text"
	case SampleTypeInt8:
		return "int8"
	case SampleTypeInt16:
		return "int16"
	case SampleTypeInt32:
		return "int32"
	case SampleTypeInt64:
		return "int64"
	case SampleTypeFloat32:
		return "float32"
	case SampleTypeFloat64:
		return "float64"
	default:
		return fmt.Sprintf("SampleType(%d)", uint8(t))
	}
}

// Sample is the set of element types a Series can hold. uint8 is text.
type Sample interface {
	uint8 | int8 | int16 | int32 | int64 | float32 | float64
}

// Samples is an ordered run of samples of one type.
type Samples interface {
	// Len returns the number of samples.
	Len() int
	// Type returns the element type.
	Type() SampleType
	// Slice returns samples [i, j). The result shares storage with the receiver.
	Slice(i, j int) Samples
}

// Series is a typed sample run.
type Series[T Sample] []T

// Len implements Samples.
func (s Series[T]) Len() int { return len(s) }

// Slice implements Samples.
func (s Series[T]) Slice(i, j int) Samples { return s[i:j] }

// Type implements Samples.
func (s Series[T]) Type() SampleType { return typeOf[T]() }

func typeOf[T Sample]() SampleType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return SampleTypeText
	case int8:
		return SampleTypeInt8
	case int16:
		return SampleTypeInt16
	case int32:
		return SampleTypeInt32
	case int64:
		return SampleTypeInt64
	case float32:
		return SampleTypeFloat32
	case float64:
		return SampleTypeFloat64
	default:
		return SampleTypeUnknown
	}
}

// Text returns a text sample run.
func Text(s string) Series[uint8] { return Series[uint8](s) }

// NewSamples allocates a zeroed run of n samples of type t.
func NewSamples(t SampleType, n int) (Samples, error) {
	switch t {
	case SampleTypeText:
		return make(Series[uint8], n), nil
	case SampleTypeInt8:
		return make(Series[int8], n), nil
	case SampleTypeInt16:
		return make(Series[int16], n), nil
	case SampleTypeInt32:
		return make(Series[int32], n), nil
	case SampleTypeInt64:
		return make(Series[int64], n), nil
	case SampleTypeFloat32:
		return make(Series[float32], n), nil
	case SampleTypeFloat64:
		return make(Series[float64], n), nil
	default:
		return nil, fmt.Errorf("unknown sample type %v", t)
	}
}

// Clone returns a copy of s that shares no storage with it.
func Clone(s Samples) Samples {
	switch v := s.(type) {
	case nil:
		return nil
	case Series[uint8]:
		return append(Series[uint8](nil), v...)
	case Series[int8]:
		return append(Series[int8](nil), v...)
	case Series[int16]:
		return append(Series[int16](nil), v...)
	case Series[int32]:
		return append(Series[int32](nil), v...)
	case Series[int64]:
		return append(Series[int64](nil), v...)
	case Series[float32]:
		return append(Series[float32](nil), v...)
	case Series[float64]:
		return append(Series[float64](nil), v...)
	default:
		return s
	}
}

// Append returns dst with src appended. A nil dst yields a copy of src.
func Append(dst, src Samples) (Samples, error) {
	if dst == nil {
		return Clone(src), nil
	}
	if src == nil || src.Len() == 0 {
		return dst, nil
	}
	switch d := dst.(type) {
	case Series[uint8]:
		return appendSeries(d, src)
	case Series[int8]:
		return appendSeries(d, src)
	case Series[int16]:
		return appendSeries(d, src)
	case Series[int32]:
		return appendSeries(d, src)
	case Series[int64]:
		return appendSeries(d, src)
	case Series[float32]:
		return appendSeries(d, src)
	case Series[float64]:
		return appendSeries(d, src)
	default:
		return nil, fmt.Errorf("%w: unsupported run %T", ErrSampleTypeMismatch, dst)
	}
}

func appendSeries[T Sample](dst Series[T], src Samples) (Samples, error) {
	s, ok := src.(Series[T])
	if !ok {
		return nil, fmt.Errorf("%w: cannot append %v to %v", ErrSampleTypeMismatch, src.Type(), dst.Type())
	}
	return append(dst, s...), nil
}

// Concat returns a new run holding a followed by b.
func Concat(a, b Samples) (Samples, error) {
	out, err := Append(Clone(a), b)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Equal reports whether a and b have the same type and bit-identical values.
func Equal(a, b Samples) bool {
	if a == nil || b == nil {
		return (a == nil || a.Len() == 0) && (b == nil || b.Len() == 0)
	}
	if a.Type() != b.Type() || a.Len() != b.Len() {
		return false
	}
	switch x := a.(type) {
	case Series[uint8]:
		return seriesEqual(x, b.(Series[uint8]))
	case Series[int8]:
		return seriesEqual(x, b.(Series[int8]))
	case Series[int16]:
		return seriesEqual(x, b.(Series[int16]))
	case Series[int32]:
		return seriesEqual(x, b.(Series[int32]))
	case Series[int64]:
		return seriesEqual(x, b.(Series[int64]))
	case Series[float32]:
		return seriesEqual(x, b.(Series[float32]))
	case Series[float64]:
		return seriesEqual(x, b.(Series[float64]))
	}
	return false
}

func seriesEqual[T Sample](a, b Series[T]) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
