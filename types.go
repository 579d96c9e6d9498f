package mseed

import "github.com/hupe1980/mseed/record"

// SourceID identifies a channel, e.g. FDSN:IU_ANMO_00_B_H_Z.
type SourceID = record.SourceID

// NSTime is a UTC timestamp in nanoseconds since the Unix epoch.
type NSTime = record.NSTime

// SampleType is the element type of a sample run.
type SampleType = record.SampleType

// Samples is an ordered run of samples of one type.
type Samples = record.Samples

// Series is a typed sample run.
type Series[T record.Sample] = record.Series[T]

const (
	SourceIDPrefix = record.SourceIDPrefix

	NSTModulus = record.NSTModulus
	NSTError   = record.NSTError
	NSTUnset   = record.NSTUnset
)

var (
	ParseSourceID     = record.ParseSourceID
	MustParseSourceID = record.MustParseSourceID
	SourceIDFromNSLC  = record.SourceIDFromNSLC
	ParseTime         = record.ParseTime
	MustParseTime     = record.MustParseTime
	FormatTime        = record.FormatTime
	SampleTime        = record.SampleTime
	SamplePeriod      = record.SamplePeriod
	NSTimeFromTime    = record.NSTimeFromTime
)
