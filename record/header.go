package record

// Flag bits of a miniSEED 3 header.
const (
	FlagCalibration  uint8 = 1 << 0
	FlagTimeTagDoubt uint8 = 1 << 1
	FlagClockLocked  uint8 = 1 << 2
)

// Header is the decoded fixed header of one record.
type Header struct {
	// FormatVersion is 2 or 3.
	FormatVersion uint8
	SourceID      SourceID
	StartTime     NSTime
	// SampleRate in samples per second. Zero for records without a rate.
	SampleRate float64
	// SampleCount is the number of samples the header declares.
	SampleCount int64
	Encoding    Encoding
	PubVersion  uint8
	Flags       uint8
	// ExtraHeaders is the raw JSON object of a v3 record, nil when absent.
	ExtraHeaders []byte
	// RecordLength is the total length of the record in bytes.
	RecordLength int
	// DataLength is the length of the encoded sample payload.
	DataLength int
	// CRC is the stored CRC-32C of a v3 record, 0 for v2.
	CRC uint32
}

// EndTime returns the time of the last sample.
func (h *Header) EndTime() NSTime {
	if h.SampleCount <= 0 || h.SampleRate == 0 {
		return h.StartTime
	}
	return SampleTime(h.StartTime, h.SampleCount-1, h.SampleRate)
}

// SampleType returns the type samples of this record decode to.
func (h *Header) SampleType() SampleType { return h.Encoding.SampleType() }

// Record is a decoded record.
type Record struct {
	Header
	// Samples is nil unless the record was decoded with UnpackData.
	Samples Samples
	// Raw is the record's bytes. It aliases the decode input.
	Raw []byte
	// Offset is the byte offset of the record in its source.
	Offset int64
}

// NumSamples returns the number of decoded samples.
func (r *Record) NumSamples() int {
	if r.Samples == nil {
		return 0
	}
	return r.Samples.Len()
}
