package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// miniSEED 2 fixed section of data header.
const (
	v2OffSequence     = 0
	v2OffQuality      = 6
	v2OffReserved     = 7
	v2OffStation      = 8
	v2OffLocation     = 13
	v2OffChannel      = 15
	v2OffNetwork      = 18
	v2OffYear         = 20
	v2OffDay          = 22
	v2OffHour         = 24
	v2OffMinute       = 25
	v2OffSecond       = 26
	v2OffFract        = 28
	v2OffNumSamples   = 30
	v2OffRateFactor   = 32
	v2OffRateMult     = 34
	v2OffActFlags     = 36
	v2OffIOFlags      = 37
	v2OffQualFlags    = 38
	v2OffNumBlockette = 39
	v2OffTimeCorr     = 40
	v2OffDataOffset   = 44
	v2OffBlockette    = 46
	v2FixedSize       = 48

	v2MinRecordLength = 128
	v2MaxRecordLength = 1 << 16
	v2DataStart       = 64
	v2MaxBlockettes   = 32
)

var be = binary.BigEndian

// qualityPubVersion maps the v2 data quality indicator to a publication version.
var qualityPubVersion = map[byte]uint8{'R': 1, 'D': 2, 'Q': 3, 'M': 4}

func pubVersionQuality(v uint8) byte {
	switch v {
	case 1:
		return 'R'
	case 3:
		return 'Q'
	case 4:
		return 'M'
	default:
		return 'D'
	}
}

func isV2(buf []byte) bool {
	if len(buf) < v2FixedSize {
		return false
	}
	for _, c := range buf[v2OffSequence:v2OffQuality] {
		if (c < '0' || c > '9') && c != ' ' && c != 0 {
			return false
		}
	}
	if _, ok := qualityPubVersion[buf[v2OffQuality]]; !ok {
		return false
	}
	return buf[v2OffReserved] == ' ' || buf[v2OffReserved] == 0
}

// v2HeaderOrder guesses the header byte order from the year and day fields.
func v2HeaderOrder(buf []byte) binary.ByteOrder {
	year, doy := be.Uint16(buf[v2OffYear:]), be.Uint16(buf[v2OffDay:])
	if year >= 1900 && year <= 2100 && doy >= 1 && doy <= 366 {
		return be
	}
	return le
}

type v2Blockettes struct {
	have1000   bool
	encoding   Encoding
	wordOrder  uint8
	reclen     int
	have1001   bool
	microsec   int8
	actualRate float64
}

// walkV2Blockettes reads the blockette chain. errShortHeader means buf ends
// inside the chain.
func walkV2Blockettes(buf []byte, order binary.ByteOrder) (v2Blockettes, error) {
	var b v2Blockettes
	next := int(order.Uint16(buf[v2OffBlockette:]))
	count := int(buf[v2OffNumBlockette])
	for i := 0; next != 0 && i < v2MaxBlockettes; i++ {
		if next < v2FixedSize {
			return b, fmt.Errorf("blockette offset %d inside fixed header", next)
		}
		if next+4 > len(buf) {
			return b, errShortHeader
		}
		typ := order.Uint16(buf[next:])
		following := int(order.Uint16(buf[next+2:]))
		switch typ {
		case 1000:
			if next+8 > len(buf) {
				return b, errShortHeader
			}
			b.have1000 = true
			b.encoding = Encoding(buf[next+4])
			b.wordOrder = buf[next+5]
			exp := buf[next+6]
			if exp < 6 || exp > 16 {
				return b, fmt.Errorf("record length exponent %d out of range", exp)
			}
			b.reclen = 1 << exp
		case 1001:
			if next+8 > len(buf) {
				return b, errShortHeader
			}
			b.have1001 = true
			b.microsec = int8(buf[next+5])
		case 100:
			if next+8 > len(buf) {
				return b, errShortHeader
			}
			b.actualRate = float64(math.Float32frombits(order.Uint32(buf[next+4:])))
		}
		if following != 0 && following <= next {
			return b, fmt.Errorf("blockette chain loops at offset %d", next)
		}
		next = following
		if i+1 >= count && count > 0 {
			break
		}
	}
	if !b.have1000 {
		return b, fmt.Errorf("blockette 1000 missing")
	}
	return b, nil
}

func decodeV2(buf []byte, opts DecodeOptions) (*Record, error) {
	const op = "decode"
	diag := opts.Diagnostics
	if !isV2(buf) {
		return nil, formatErrorf(op, diag, "not a miniSEED 2 record")
	}
	order := v2HeaderOrder(buf)
	blk, err := walkV2Blockettes(buf, order)
	if err != nil {
		return nil, wrapFormatError(op, diag, err, "invalid blockettes")
	}
	if len(buf) < blk.reclen {
		return nil, formatErrorf(op, diag, "record declares %d bytes, have %d", blk.reclen, len(buf))
	}
	buf = buf[:blk.reclen]

	field := func(from, to int) string { return strings.TrimRight(string(buf[from:to]), " \x00") }
	sid, err := SourceIDFromNSLC(field(v2OffNetwork, v2OffNetwork+2), field(v2OffStation, v2OffStation+5),
		field(v2OffLocation, v2OffLocation+2), field(v2OffChannel, v2OffChannel+3))
	if err != nil {
		return nil, wrapFormatError(op, diag, err, "invalid station identification")
	}

	year, doy := int(order.Uint16(buf[v2OffYear:])), int(order.Uint16(buf[v2OffDay:]))
	hour, minute, sec := int(buf[v2OffHour]), int(buf[v2OffMinute]), int(buf[v2OffSecond])
	fract := int(order.Uint16(buf[v2OffFract:]))
	if fract > 9999 {
		return nil, formatErrorf(op, diag, "BTIME fraction %d out of range", fract)
	}
	if err := checkTimeFields(year, doy, hour, minute, sec, 0); err != nil {
		return nil, wrapFormatError(op, diag, err, "invalid start time")
	}
	start := joinTime(year, doy, hour, minute, sec, fract*100_000)
	start += NSTime(int64(blk.microsec) * 1000)
	act := buf[v2OffActFlags]
	if corr := int32(order.Uint32(buf[v2OffTimeCorr:])); corr != 0 && act&0x02 == 0 {
		start += NSTime(int64(corr) * 100_000)
	}

	rate := v2SampleRate(int16(order.Uint16(buf[v2OffRateFactor:])), int16(order.Uint16(buf[v2OffRateMult:])))
	if blk.actualRate > 0 {
		rate = blk.actualRate
	}

	dataOffset := int(order.Uint16(buf[v2OffDataOffset:]))
	count := int64(order.Uint16(buf[v2OffNumSamples:]))
	if count > 0 && (dataOffset < v2FixedSize || dataOffset > len(buf)) {
		return nil, formatErrorf(op, diag, "data offset %d out of range", dataOffset)
	}

	var flags uint8
	if act&0x01 != 0 {
		flags |= FlagCalibration
	}
	if buf[v2OffQualFlags]&0x80 != 0 {
		flags |= FlagTimeTagDoubt
	}
	if buf[v2OffIOFlags]&0x20 != 0 {
		flags |= FlagClockLocked
	}

	rec := &Record{
		Header: Header{
			FormatVersion: 2,
			SourceID:      sid,
			StartTime:     start,
			SampleRate:    rate,
			SampleCount:   count,
			Encoding:      blk.encoding,
			PubVersion:    qualityPubVersion[buf[v2OffQuality]],
			Flags:         flags,
			RecordLength:  blk.reclen,
		},
		Raw: buf,
	}
	if dataOffset >= v2FixedSize && dataOffset <= len(buf) {
		rec.DataLength = len(buf) - dataOffset
	}
	if opts.UnpackData && count > 0 {
		dataOrder := binary.ByteOrder(be)
		if blk.wordOrder == 0 {
			dataOrder = le
		}
		samples, err := decodeData(buf[dataOffset:], int(count), blk.encoding, dataOrder)
		if err != nil {
			return nil, wrapFormatError(op, diag, err, "cannot decode samples")
		}
		rec.Samples = samples
	}
	return rec, nil
}

// v2SampleRate converts a SEED rate factor and multiplier to samples per second.
func v2SampleRate(factor, mult int16) float64 {
	f, m := float64(factor), float64(mult)
	switch {
	case factor == 0 || mult == 0:
		return 0
	case factor > 0 && mult > 0:
		return f * m
	case factor > 0 && mult < 0:
		return -f / m
	case factor < 0 && mult > 0:
		return -m / f
	default:
		return 1 / (f * m)
	}
}

// v2RateFactors finds a factor and multiplier representing rate.
func v2RateFactors(rate float64) (factor, mult int16, err error) {
	switch {
	case rate == 0:
		return 0, 0, nil
	case rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0):
		return 0, 0, fmt.Errorf("sample rate %v cannot be represented", rate)
	case rate >= 1 && rate <= math.MaxInt16 && rate == math.Trunc(rate):
		return int16(rate), 1, nil
	}
	if period := 1 / rate; rate < 1 && period <= math.MaxInt16 && period == math.Trunc(period) {
		return -int16(period), 1, nil
	}

	best, bestErr := [2]int16{}, math.Inf(1)
	for d := 1; d <= math.MaxInt16; d++ {
		num := math.Round(rate * float64(d))
		if num < 1 || num > math.MaxInt16 {
			if num > math.MaxInt16 {
				break
			}
			continue
		}
		if e := math.Abs(num/float64(d) - rate); e < bestErr {
			bestErr = e
			// rate = num/d: factor>0 mult<0 when >= 1, factor<0 mult>0 otherwise.
			if rate >= 1 {
				best = [2]int16{int16(num), -int16(d)}
			} else {
				best = [2]int16{-int16(d), int16(num)}
			}
			if e == 0 {
				break
			}
		}
	}
	if math.IsInf(bestErr, 1) {
		return 0, 0, fmt.Errorf("sample rate %v cannot be represented", rate)
	}
	return best[0], best[1], nil
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func encodeV2(h *Header, samples Samples, enc Encoding, opts EncodeOptions) ([]byte, int, bool, error) {
	const op = "encode"
	diag := opts.Diagnostics
	reclen := opts.MaxRecordLength
	if !isPowerOfTwo(reclen) || reclen < v2MinRecordLength || reclen > v2MaxRecordLength {
		return nil, 0, false, formatErrorf(op, diag, "miniSEED 2 record length %d must be a power of two in [%d, %d]",
			reclen, v2MinRecordLength, v2MaxRecordLength)
	}
	net, sta, loc, cha, err := h.SourceID.NSLC()
	if err != nil {
		return nil, 0, false, wrapFormatError(op, diag, err, "cannot derive station identification")
	}
	if len(net) > 2 || len(sta) > 5 || len(loc) > 2 || len(cha) > 3 {
		return nil, 0, false, formatErrorf(op, diag, "%s does not fit miniSEED 2 station identification", h.SourceID)
	}
	factor, mult, err := v2RateFactors(h.SampleRate)
	if err != nil {
		return nil, 0, false, wrapFormatError(op, diag, err, "invalid sample rate")
	}
	if len(h.ExtraHeaders) > 0 {
		diag.Addf("%s: extra headers are not representable in miniSEED 2 and were dropped", h.SourceID)
	}

	data, packed, full, err := encodePayload(samples, enc, reclen-v2DataStart, be, math.MaxUint16)
	if err != nil {
		return nil, 0, false, wrapFormatError(op, diag, err, "cannot encode samples")
	}

	buf := make([]byte, reclen)
	seq := opts.SequenceNumber
	if seq <= 0 || seq > 999999 {
		seq = 1
	}
	copy(buf[v2OffSequence:], fmt.Sprintf("%06d", seq))
	buf[v2OffQuality] = pubVersionQuality(h.PubVersion)
	buf[v2OffReserved] = ' '
	putPadded(buf[v2OffStation:v2OffStation+5], sta)
	putPadded(buf[v2OffLocation:v2OffLocation+2], loc)
	putPadded(buf[v2OffChannel:v2OffChannel+3], cha)
	putPadded(buf[v2OffNetwork:v2OffNetwork+2], net)

	year, doy, hour, minute, sec, nanos := splitTime(h.StartTime)
	be.PutUint16(buf[v2OffYear:], uint16(year))
	be.PutUint16(buf[v2OffDay:], uint16(doy))
	buf[v2OffHour], buf[v2OffMinute], buf[v2OffSecond] = byte(hour), byte(minute), byte(sec)
	be.PutUint16(buf[v2OffFract:], uint16(nanos/100_000))
	if nanos%1000 != 0 {
		diag.Addf("%s: start time truncated to microseconds", h.SourceID)
	}
	be.PutUint16(buf[v2OffNumSamples:], uint16(packed))
	be.PutUint16(buf[v2OffRateFactor:], uint16(factor))
	be.PutUint16(buf[v2OffRateMult:], uint16(mult))
	if h.Flags&FlagCalibration != 0 {
		buf[v2OffActFlags] |= 0x01
	}
	if h.Flags&FlagClockLocked != 0 {
		buf[v2OffIOFlags] |= 0x20
	}
	if h.Flags&FlagTimeTagDoubt != 0 {
		buf[v2OffQualFlags] |= 0x80
	}
	buf[v2OffNumBlockette] = 2
	be.PutUint16(buf[v2OffDataOffset:], v2DataStart)
	be.PutUint16(buf[v2OffBlockette:], v2FixedSize)

	// Blockette 1000 at 48, blockette 1001 at 56.
	b := buf[v2FixedSize:]
	be.PutUint16(b[0:], 1000)
	be.PutUint16(b[2:], v2FixedSize+8)
	b[4] = byte(enc)
	b[5] = 1
	b[6] = byte(log2(reclen))
	b = buf[v2FixedSize+8:]
	be.PutUint16(b[0:], 1001)
	b[5] = byte(int8((nanos % 100_000) / 1000))
	if enc.IsSteim() {
		b[7] = byte(len(data) / steimFrameSize)
	}

	copy(buf[v2DataStart:], data)
	return buf, packed, full, nil
}

func putPadded(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}

func log2(n int) int {
	e := 0
	for n > 1 {
		n >>= 1
		e++
	}
	return e
}
