package record

import (
	"io"
)

// errShortHeader reports that more bytes are needed to parse a header.
var errShortHeader = io.ErrUnexpectedEOF

// Detect identifies the record at the start of buf and returns its format
// version and total length. io.ErrUnexpectedEOF means buf is too short to
// tell; any other error is a *FormatError.
func Detect(buf []byte) (version uint8, length int, err error) {
	if len(buf) < 3 {
		return 0, 0, errShortHeader
	}
	if isV3(buf) {
		if len(buf) < v3FixedSize {
			return 0, 0, errShortHeader
		}
		return 3, v3Length(buf), nil
	}
	if len(buf) < v2FixedSize {
		if plausibleV2Prefix(buf) {
			return 0, 0, errShortHeader
		}
		return 0, 0, formatErrorf("detect", nil, "not a miniSEED record")
	}
	if !isV2(buf) {
		return 0, 0, formatErrorf("detect", nil, "not a miniSEED record")
	}
	blk, err := walkV2Blockettes(buf, v2HeaderOrder(buf))
	if err == errShortHeader {
		return 0, 0, err
	}
	if err != nil {
		return 0, 0, wrapFormatError("detect", nil, err, "invalid miniSEED 2 header")
	}
	return 2, blk.reclen, nil
}

func plausibleV2Prefix(buf []byte) bool {
	for i, c := range buf {
		switch {
		case i < v2OffQuality:
			if (c < '0' || c > '9') && c != ' ' && c != 0 {
				return false
			}
		case i == v2OffQuality:
			if _, ok := qualityPubVersion[c]; !ok {
				return false
			}
		}
	}
	return true
}
