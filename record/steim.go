package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	steimFrameSize  = 64
	steimFrameWords = 16
)

var errSteimRange = errors.New("sample difference out of range")

// steimGroup describes one way of packing differences into a 32-bit word.
type steimGroup struct {
	count int
	bits  uint
	nib   uint32
	dnib  uint32
}

var (
	steim1Groups = []steimGroup{
		{count: 4, bits: 8, nib: 1},
		{count: 2, bits: 16, nib: 2},
		{count: 1, bits: 32, nib: 3},
	}
	steim2Groups = []steimGroup{
		{count: 7, bits: 4, nib: 3, dnib: 2},
		{count: 6, bits: 5, nib: 3, dnib: 1},
		{count: 5, bits: 6, nib: 3, dnib: 0},
		{count: 4, bits: 8, nib: 1},
		{count: 3, bits: 10, nib: 2, dnib: 3},
		{count: 2, bits: 15, nib: 2, dnib: 2},
		{count: 1, bits: 30, nib: 2, dnib: 1},
	}
)

func fitsBits(v int64, bits uint) bool {
	lim := int64(1) << (bits - 1)
	return v >= -lim && v < lim
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// steimResult is the outcome of packing as many samples as fit into a
// fixed number of frames.
type steimResult struct {
	data   []byte
	packed int
	full   bool
}

// encodeSteim packs samples into at most maxBytes/64 frames. The first
// difference is always zero.
func encodeSteim(samples Series[int32], enc Encoding, maxBytes int, order binary.ByteOrder) (steimResult, error) {
	groups := steim1Groups
	if enc == EncodingSteim2 {
		groups = steim2Groups
	}
	maxFrames := maxBytes / steimFrameSize
	n := len(samples)
	if maxFrames == 0 || n == 0 {
		return steimResult{full: maxFrames == 0 && n > 0}, nil
	}

	diff := func(i int) int64 {
		if i == 0 {
			return 0
		}
		return int64(samples[i]) - int64(samples[i-1])
	}

	var (
		out      []byte
		idx      int
		lastWord int
		frames   int
	)
	for frames < maxFrames && idx < n {
		var words [steimFrameWords]uint32
		first := 1
		if frames == 0 {
			first = 3
		}
		lastWord = first - 1
		for w := first; w < steimFrameWords && idx < n; w++ {
			g, ok := pickGroup(groups, diff, idx, n)
			if !ok {
				return steimResult{}, fmt.Errorf("%w: difference %d at sample %d", errSteimRange, diff(idx), idx)
			}
			var word uint32
			if g.nib != 1 && enc == EncodingSteim2 {
				word = g.dnib << 30
			}
			mask := uint32(1)<<g.bits - 1
			if g.bits == 32 {
				mask = ^uint32(0)
			}
			for k := 0; k < g.count; k++ {
				word |= (uint32(diff(idx+k)) & mask) << (g.bits * uint(g.count-1-k))
			}
			words[0] |= g.nib << (30 - 2*uint(w))
			words[w] = word
			idx += g.count
			lastWord = w
		}
		if frames == 0 {
			words[1] = uint32(samples[0])
		}
		frame := make([]byte, steimFrameSize)
		for w, v := range words {
			order.PutUint32(frame[w*4:], v)
		}
		out = append(out, frame...)
		frames++
	}
	// Xn is the last sample actually packed.
	order.PutUint32(out[8:], uint32(samples[idx-1]))

	full := idx < n || (frames == maxFrames && lastWord == steimFrameWords-1)
	return steimResult{data: out, packed: idx, full: full}, nil
}

func pickGroup(groups []steimGroup, diff func(int) int64, idx, n int) (steimGroup, bool) {
	remaining := n - idx
	for _, g := range groups {
		if g.count > remaining {
			continue
		}
		ok := true
		for k := 0; k < g.count; k++ {
			if !fitsBits(diff(idx+k), g.bits) {
				ok = false
				break
			}
		}
		if ok {
			return g, true
		}
	}
	return steimGroup{}, false
}

func decodeSteim1(data []byte, n int, order binary.ByteOrder) (Samples, error) {
	return decodeSteim(data, n, order, EncodingSteim1)
}

func decodeSteim2(data []byte, n int, order binary.ByteOrder) (Samples, error) {
	return decodeSteim(data, n, order, EncodingSteim2)
}

func decodeSteim(data []byte, n int, order binary.ByteOrder, enc Encoding) (Samples, error) {
	if n == 0 {
		return Series[int32]{}, nil
	}
	frames := len(data) / steimFrameSize
	if frames == 0 {
		return nil, fmt.Errorf("%v payload of %d bytes holds no frames", enc, len(data))
	}
	if n > frames*(steimFrameWords-1)*7 {
		return nil, fmt.Errorf("%v payload of %d frames cannot hold %d samples", enc, frames, n)
	}

	var x0, xn int32
	diffs := make([]int32, 0, n)
	for f := 0; f < frames && len(diffs) < n; f++ {
		frame := data[f*steimFrameSize : (f+1)*steimFrameSize]
		ctrl := order.Uint32(frame)
		first := 1
		if f == 0 {
			x0 = int32(order.Uint32(frame[4:]))
			xn = int32(order.Uint32(frame[8:]))
			first = 3
		}
		for w := first; w < steimFrameWords && len(diffs) < n; w++ {
			nib := (ctrl >> (30 - 2*uint(w))) & 0x3
			word := order.Uint32(frame[w*4:])
			g, err := decodeGroup(enc, nib, word)
			if err != nil {
				return nil, fmt.Errorf("frame %d word %d: %w", f, w, err)
			}
			for k := 0; k < g.count; k++ {
				v := (word >> (g.bits * uint(g.count-1-k)))
				if g.bits < 32 {
					v &= uint32(1)<<g.bits - 1
				}
				diffs = append(diffs, signExtend(v, g.bits))
			}
		}
	}
	if len(diffs) < n {
		return nil, fmt.Errorf("%v payload holds %d differences, header declares %d samples", enc, len(diffs), n)
	}

	out := make(Series[int32], n)
	out[0] = x0
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + diffs[i]
	}
	if out[n-1] != xn {
		return nil, fmt.Errorf("%v integrity check failed: last sample %d, expected %d", enc, out[n-1], xn)
	}
	return out, nil
}

func decodeGroup(enc Encoding, nib, word uint32) (steimGroup, error) {
	switch {
	case nib == 0:
		return steimGroup{}, nil
	case nib == 1:
		return steimGroup{count: 4, bits: 8, nib: 1}, nil
	case enc == EncodingSteim1 && nib == 2:
		return steimGroup{count: 2, bits: 16, nib: 2}, nil
	case enc == EncodingSteim1:
		return steimGroup{count: 1, bits: 32, nib: 3}, nil
	}
	dnib := word >> 30
	for _, g := range steim2Groups {
		if g.nib == nib && g.dnib == dnib && g.nib != 1 {
			return g, nil
		}
	}
	return steimGroup{}, fmt.Errorf("invalid Steim-2 nibbles %d/%d", nib, dnib)
}
