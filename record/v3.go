package record

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/mseed/codec"
	"github.com/hupe1980/mseed/internal/hash"
)

// miniSEED 3 fixed header layout.
const (
	v3OffIndicator  = 0
	v3OffVersion    = 2
	v3OffFlags      = 3
	v3OffNanosecond = 4
	v3OffYear       = 8
	v3OffDay        = 10
	v3OffHour       = 12
	v3OffMinute     = 13
	v3OffSecond     = 14
	v3OffEncoding   = 15
	v3OffSampleRate = 16
	v3OffNumSamples = 24
	v3OffCRC        = 28
	v3OffPubVersion = 32
	v3OffSIDLength  = 33
	v3OffExtraLen   = 34
	v3OffDataLength = 36
	v3FixedSize     = 40
)

var le = binary.LittleEndian

func isV3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 'M' && buf[1] == 'S' && buf[2] == 3
}

// v3Length returns the record length declared by a v3 fixed header.
func v3Length(buf []byte) int {
	return v3FixedSize + int(buf[v3OffSIDLength]) + int(le.Uint16(buf[v3OffExtraLen:])) + int(le.Uint32(buf[v3OffDataLength:]))
}

func decodeV3(buf []byte, opts DecodeOptions) (*Record, error) {
	const op = "decode"
	diag := opts.Diagnostics
	if len(buf) < v3FixedSize {
		return nil, formatErrorf(op, diag, "miniSEED 3 header needs %d bytes, have %d", v3FixedSize, len(buf))
	}
	length := v3Length(buf)
	if len(buf) < length {
		return nil, formatErrorf(op, diag, "record declares %d bytes, have %d", length, len(buf))
	}
	buf = buf[:length]

	stored := le.Uint32(buf[v3OffCRC:])
	if !opts.SkipCRC {
		if got := hash.RecordCRC(buf, v3OffCRC); got != stored {
			diag.Addf("CRC mismatch: stored 0x%08X, calculated 0x%08X", stored, got)
			return nil, formatErrorf(op, diag, "CRC-32C integrity check failed")
		}
	}

	year := int(le.Uint16(buf[v3OffYear:]))
	doy := int(le.Uint16(buf[v3OffDay:]))
	hour, minute, sec := int(buf[v3OffHour]), int(buf[v3OffMinute]), int(buf[v3OffSecond])
	nanos := int(le.Uint32(buf[v3OffNanosecond:]))
	if err := checkTimeFields(year, doy, hour, minute, sec, nanos); err != nil {
		return nil, wrapFormatError(op, diag, err, "invalid start time")
	}

	sidLen := int(buf[v3OffSIDLength])
	extraLen := int(le.Uint16(buf[v3OffExtraLen:]))
	dataLen := int(le.Uint32(buf[v3OffDataLength:]))
	if sidLen == 0 {
		return nil, formatErrorf(op, diag, "empty source identifier")
	}
	sid := SourceID(buf[v3FixedSize : v3FixedSize+sidLen])
	if _, err := ParseSourceID(string(sid)); err != nil {
		diag.Addf("%s: non-standard source identifier", sid)
	}

	var extra []byte
	if extraLen > 0 {
		extra = buf[v3FixedSize+sidLen : v3FixedSize+sidLen+extraLen]
		if err := codec.ValidateObject(codec.Default, extra); err != nil {
			return nil, wrapFormatError(op, diag, err, "invalid extra headers")
		}
	}

	rate := math.Float64frombits(le.Uint64(buf[v3OffSampleRate:]))
	if rate < 0 {
		rate = -1 / rate
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, formatErrorf(op, diag, "invalid sample rate %v", rate)
	}

	rec := &Record{
		Header: Header{
			FormatVersion: 3,
			SourceID:      sid,
			StartTime:     joinTime(year, doy, hour, minute, sec, nanos),
			SampleRate:    rate,
			SampleCount:   int64(le.Uint32(buf[v3OffNumSamples:])),
			Encoding:      Encoding(buf[v3OffEncoding]),
			PubVersion:    buf[v3OffPubVersion],
			Flags:         buf[v3OffFlags],
			ExtraHeaders:  extra,
			RecordLength:  length,
			DataLength:    dataLen,
			CRC:           stored,
		},
		Raw: buf,
	}
	if opts.UnpackData && rec.SampleCount > 0 {
		data := buf[length-dataLen:]
		samples, err := decodeData(data, int(rec.SampleCount), rec.Encoding, v3DataOrder(rec.Encoding))
		if err != nil {
			return nil, wrapFormatError(op, diag, err, "cannot decode samples")
		}
		rec.Samples = samples
	}
	return rec, nil
}

// Steim frames are big-endian in every format version.
func v3DataOrder(enc Encoding) binary.ByteOrder {
	if enc.IsSteim() {
		return binary.BigEndian
	}
	return le
}

// encodeV3 encodes the leading samples that fit into one record.
func encodeV3(h *Header, samples Samples, enc Encoding, opts EncodeOptions) ([]byte, int, bool, error) {
	const op = "encode"
	diag := opts.Diagnostics
	sidLen := len(h.SourceID)
	if sidLen == 0 || sidLen > 255 {
		return nil, 0, false, formatErrorf(op, diag, "source identifier length %d out of range", sidLen)
	}
	if len(h.ExtraHeaders) > math.MaxUint16 {
		return nil, 0, false, formatErrorf(op, diag, "extra headers of %d bytes exceed the format limit", len(h.ExtraHeaders))
	}
	if len(h.ExtraHeaders) > 0 {
		if err := codec.ValidateObject(codec.Default, h.ExtraHeaders); err != nil {
			return nil, 0, false, wrapFormatError(op, diag, err, "invalid extra headers")
		}
	}
	fixed := v3FixedSize + sidLen + len(h.ExtraHeaders)
	avail := opts.MaxRecordLength - fixed
	if avail <= 0 {
		return nil, 0, false, formatErrorf(op, diag, "record length %d cannot hold a %d byte header", opts.MaxRecordLength, fixed)
	}

	data, packed, full, err := encodePayload(samples, enc, avail, v3DataOrder(enc), math.MaxUint32)
	if err != nil {
		return nil, 0, false, wrapFormatError(op, diag, err, "cannot encode samples")
	}

	buf := make([]byte, fixed+len(data))
	buf[v3OffIndicator], buf[v3OffIndicator+1] = 'M', 'S'
	buf[v3OffVersion] = 3
	buf[v3OffFlags] = h.Flags
	year, doy, hour, minute, sec, nanos := splitTime(h.StartTime)
	le.PutUint32(buf[v3OffNanosecond:], uint32(nanos))
	le.PutUint16(buf[v3OffYear:], uint16(year))
	le.PutUint16(buf[v3OffDay:], uint16(doy))
	buf[v3OffHour], buf[v3OffMinute], buf[v3OffSecond] = byte(hour), byte(minute), byte(sec)
	buf[v3OffEncoding] = byte(enc)
	le.PutUint64(buf[v3OffSampleRate:], math.Float64bits(h.SampleRate))
	le.PutUint32(buf[v3OffNumSamples:], uint32(packed))
	buf[v3OffPubVersion] = h.PubVersion
	buf[v3OffSIDLength] = byte(sidLen)
	le.PutUint16(buf[v3OffExtraLen:], uint16(len(h.ExtraHeaders)))
	le.PutUint32(buf[v3OffDataLength:], uint32(len(data)))
	copy(buf[v3FixedSize:], h.SourceID)
	copy(buf[v3FixedSize+sidLen:], h.ExtraHeaders)
	copy(buf[fixed:], data)
	le.PutUint32(buf[v3OffCRC:], hash.RecordCRC(buf, v3OffCRC))
	return buf, packed, full, nil
}

// encodePayload encodes as many leading samples as fit in avail bytes, capped
// at maxCount. full reports that no further sample would have fit.
func encodePayload(samples Samples, enc Encoding, avail int, order binary.ByteOrder, maxCount int) ([]byte, int, bool, error) {
	n := samples.Len()
	if enc.IsSteim() {
		s, ok := samples.(Series[int32])
		if !ok {
			return nil, 0, false, fmt.Errorf("%v requires int32 samples, have %v", enc, samples.Type())
		}
		if n > maxCount {
			s = s[:maxCount]
		}
		res, err := encodeSteim(s, enc, avail, order)
		if err != nil {
			return nil, 0, false, err
		}
		if res.packed == 0 && n > 0 {
			return nil, 0, false, fmt.Errorf("record has room for %d bytes of %v frames", avail, enc)
		}
		return res.data, res.packed, res.full || res.packed == maxCount && n > maxCount, nil
	}

	size := enc.SampleSize()
	capacity := min(avail/size, maxCount)
	if capacity == 0 && n > 0 {
		return nil, 0, false, fmt.Errorf("record has room for %d bytes, a %v sample needs %d", avail, enc, size)
	}
	packed := min(n, capacity)
	data := make([]byte, packed*size)
	encodeFixed(data, samples.Slice(0, packed), enc, order)
	return data, packed, n >= capacity, nil
}

func checkTimeFields(year, doy, hour, minute, sec, nanos int) error {
	switch {
	case year < 1 || year > 9999:
		return fmt.Errorf("year %d out of range", year)
	case doy < 1 || doy > daysInYear(year):
		return fmt.Errorf("day of year %d out of range", doy)
	case hour > 23:
		return fmt.Errorf("hour %d out of range", hour)
	case minute > 59:
		return fmt.Errorf("minute %d out of range", minute)
	case sec > 60:
		return fmt.Errorf("second %d out of range", sec)
	case nanos < 0 || nanos >= int(NSTModulus):
		return fmt.Errorf("nanosecond %d out of range", nanos)
	}
	return nil
}
