package record

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NSTime is a UTC timestamp in nanoseconds since the Unix epoch.
type NSTime int64

const (
	// NSTModulus is the number of NSTime ticks per second.
	NSTModulus = 1_000_000_000

	// NSTError marks a failed time computation.
	NSTError NSTime = -2145916800000000000

	// NSTUnset marks an absent time value, e.g. an open window bound.
	NSTUnset NSTime = -2145916801000000000
)

// SubSecond selects the fractional-second precision of FormatTime.
type SubSecond uint8

const (
	// SubSecondNanoMicro prints nanoseconds when they are not a whole number of
	// microseconds, otherwise microseconds.
	SubSecondNanoMicro SubSecond = iota
	// SubSecondNone prints whole seconds.
	SubSecondNone
	// SubSecondMicro prints microseconds.
	SubSecondMicro
	// SubSecondNano prints nanoseconds.
	SubSecondNano
)

// NSTimeFromTime converts a time.Time.
func NSTimeFromTime(t time.Time) NSTime { return NSTime(t.UnixNano()) }

// Time converts to time.Time in UTC.
func (t NSTime) Time() time.Time { return time.Unix(0, int64(t)).UTC() }

// Seconds returns t as floating point seconds since the epoch.
func (t NSTime) Seconds() float64 { return float64(t) / NSTModulus }

// String formats t with SubSecondNanoMicro precision.
func (t NSTime) String() string {
	switch t {
	case NSTUnset:
		return "unset"
	case NSTError:
		return "error"
	}
	return FormatTime(t, SubSecondNanoMicro)
}

// SamplePeriod returns the sample period of rate in nanoseconds, 0 for rate 0.
func SamplePeriod(rate float64) float64 {
	if rate == 0 {
		return 0
	}
	return NSTModulus / rate
}

// SampleTime returns the time of the sample offset samples after start.
func SampleTime(start NSTime, offset int64, rate float64) NSTime {
	if rate == 0 {
		return start
	}
	return start + NSTime(math.Round(float64(offset)*(NSTModulus/rate)))
}

// FormatTime formats t as ISO 8601, e.g. 2024-01-01T15:13:55.123456789Z.
func FormatTime(t NSTime, sub SubSecond) string {
	tt := t.Time()
	base := tt.Format("2006-01-02T15:04:05")
	nanos := tt.Nanosecond()
	switch sub {
	case SubSecondNone:
		return base + "Z"
	case SubSecondMicro:
		return fmt.Sprintf("%s.%06dZ", base, nanos/1000)
	case SubSecondNano:
		return fmt.Sprintf("%s.%09dZ", base, nanos)
	default:
		if nanos%1000 != 0 {
			return fmt.Sprintf("%s.%09dZ", base, nanos)
		}
		return fmt.Sprintf("%s.%06dZ", base, nanos/1000)
	}
}

var timeRe = regexp.MustCompile(`^(\d{4})(?:-(\d{2})-(\d{2})|[-,](\d{3}))?(?:[T ,](\d{2})(?::(\d{2})(?::(\d{2})(?:\.(\d{1,9}))?)?)?)?Z?$`)

// ParseTime parses calendar (2010-02-27T07:00:00.5Z) and ordinal
// (2010-058T07:00:00, 2010,058,07:00:00) time strings. Missing fields are zero.
func ParseTime(s string) (NSTime, error) {
	m := timeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return NSTError, fmt.Errorf("invalid time string %q", s)
	}
	atoi := func(v string, def int) int {
		if v == "" {
			return def
		}
		n, _ := strconv.Atoi(v)
		return n
	}

	year := atoi(m[1], 0)
	month, day := atoi(m[2], 1), atoi(m[3], 1)
	hour, minute, sec := atoi(m[5], 0), atoi(m[6], 0), atoi(m[7], 0)

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 60 {
		return NSTError, fmt.Errorf("time string %q out of range", s)
	}

	var nanos int
	if frac := m[8]; frac != "" {
		nanos = atoi(frac+strings.Repeat("0", 9-len(frac)), 0)
	}

	var tt time.Time
	if m[4] != "" {
		doy := atoi(m[4], 1)
		if doy < 1 || doy > daysInYear(year) {
			return NSTError, fmt.Errorf("time string %q has invalid day of year %d", s, doy)
		}
		tt = time.Date(year, 1, 1, hour, minute, sec, nanos, time.UTC).AddDate(0, 0, doy-1)
	} else {
		tt = time.Date(year, time.Month(month), day, hour, minute, sec, nanos, time.UTC)
		if tt.Day() != day {
			return NSTError, fmt.Errorf("time string %q has invalid day", s)
		}
	}
	return NSTimeFromTime(tt), nil
}

// MustParseTime is like ParseTime but panics on error.
func MustParseTime(s string) NSTime {
	t, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func daysInYear(year int) int {
	if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
		return 366
	}
	return 365
}

// splitTime breaks t into the fields stored in record headers.
func splitTime(t NSTime) (year, doy, hour, minute, sec, nanos int) {
	tt := t.Time()
	return tt.Year(), tt.YearDay(), tt.Hour(), tt.Minute(), tt.Second(), tt.Nanosecond()
}

// joinTime is the inverse of splitTime. Leap seconds (sec == 60) roll over.
func joinTime(year, doy, hour, minute, sec, nanos int) NSTime {
	tt := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	ns := int64(hour)*3600*NSTModulus + int64(minute)*60*NSTModulus + int64(sec)*NSTModulus + int64(nanos)
	return NSTime(tt.UnixNano() + ns)
}
