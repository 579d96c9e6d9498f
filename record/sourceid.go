package record

import (
	"errors"
	"fmt"
	"strings"
)

// SourceIDPrefix is the namespace of FDSN source identifiers.
const SourceIDPrefix = "FDSN:"

// MaxSourceIDLength is the longest identifier a record header can carry.
const MaxSourceIDLength = 64

// ErrInvalidSourceID wraps every source identifier parse failure.
var ErrInvalidSourceID = errors.New("invalid source identifier")

// SourceID identifies one channel, e.g. "FDSN:IU_COLA_00_B_H_Z".
//
// Equality and ordering are byte-wise on the canonical text, so SourceIDs can
// be compared with == and < directly.
type SourceID string

// ParseSourceID validates text as FDSN:NET_STA_LOC_BAND_SOURCE_SUBSOURCE.
// The returned value formats back to exactly text.
func ParseSourceID(text string) (SourceID, error) {
	if _, err := splitSourceID(text); err != nil {
		return "", &FormatError{Op: "parse source id", Offset: -1, Reason: err.Error(), cause: err}
	}
	return SourceID(text), nil
}

// MustParseSourceID is like ParseSourceID but panics on malformed input.
func MustParseSourceID(text string) SourceID {
	sid, err := ParseSourceID(text)
	if err != nil {
		panic(err)
	}
	return sid
}

// SourceIDFromNSLC builds a SourceID from SEED network, station, location and
// channel codes. Three-character channels are split into band, source and
// subsource; longer channels must already be underscore separated.
func SourceIDFromNSLC(network, station, location, channel string) (SourceID, error) {
	var band, source, subsource string
	switch parts := strings.Split(channel, "_"); {
	case len(parts) == 3:
		band, source, subsource = parts[0], parts[1], parts[2]
	case len(channel) == 3:
		band, source, subsource = channel[0:1], channel[1:2], channel[2:3]
	default:
		return "", &FormatError{
			Op:     "parse source id",
			Offset: -1,
			Reason: fmt.Sprintf("%v: channel %q is neither 3 characters nor BAND_SOURCE_SUBSOURCE", ErrInvalidSourceID, channel),
			cause:  ErrInvalidSourceID,
		}
	}
	return ParseSourceID(SourceIDPrefix + strings.Join([]string{network, station, location, band, source, subsource}, "_"))
}

// String returns the canonical text.
func (s SourceID) String() string { return string(s) }

// Compare returns -1, 0 or +1 comparing s and other byte-wise.
func (s SourceID) Compare(other SourceID) int { return strings.Compare(string(s), string(other)) }

// NSLC returns the SEED network, station, location and channel codes.
// Single-character band, source and subsource collapse into a 3-character
// channel; anything else is returned underscore separated.
func (s SourceID) NSLC() (network, station, location, channel string, err error) {
	parts, err := splitSourceID(string(s))
	if err != nil {
		return "", "", "", "", &FormatError{Op: "parse source id", Offset: -1, Reason: err.Error(), cause: err}
	}
	network, station, location = parts[0], parts[1], parts[2]
	if len(parts[3]) == 1 && len(parts[4]) == 1 && len(parts[5]) == 1 {
		channel = parts[3] + parts[4] + parts[5]
	} else {
		channel = parts[3] + "_" + parts[4] + "_" + parts[5]
	}
	return network, station, location, channel, nil
}

func splitSourceID(text string) ([]string, error) {
	if len(text) > MaxSourceIDLength {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidSourceID, text, MaxSourceIDLength)
	}
	body, ok := strings.CutPrefix(text, SourceIDPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q lacks %q prefix", ErrInvalidSourceID, text, SourceIDPrefix)
	}
	parts := strings.Split(body, "_")
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: %q must have 6 underscore separated codes, got %d", ErrInvalidSourceID, text, len(parts))
	}
	names := [6]string{"network", "station", "location", "band", "source", "subsource"}
	for i, p := range parts {
		if p == "" && (i == 0 || i == 1 || i == 4) {
			return nil, fmt.Errorf("%w: %q has empty %s code", ErrInvalidSourceID, text, names[i])
		}
		for _, c := range p {
			if !isCodeChar(c) {
				return nil, fmt.Errorf("%w: %q has invalid character %q in %s code", ErrInvalidSourceID, text, c, names[i])
			}
		}
	}
	return parts, nil
}

func isCodeChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
}
