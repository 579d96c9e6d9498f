package archive

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/mseed"
)

const volumeExt = ".mseed"

// Volume is one stored blob of records of a single SourceID and day.
type Volume struct {
	// Name is the blob name relative to the store root.
	Name        string
	SourceID    mseed.SourceID
	Day         time.Time
	Seq         int
	Compression Compression
}

// dayKey groups records into volumes.
type dayKey struct {
	sid  mseed.SourceID
	year int
	doy  int
}

func dayOf(sid mseed.SourceID, t mseed.NSTime) dayKey {
	tt := t.Time()
	return dayKey{sid: sid, year: tt.Year(), doy: tt.YearDay()}
}

func (k dayKey) compare(o dayKey) int {
	if c := k.sid.Compare(o.sid); c != 0 {
		return c
	}
	if k.year != o.year {
		return k.year - o.year
	}
	return k.doy - o.doy
}

func (k dayKey) start() time.Time {
	return time.Date(k.year, 1, k.doy, 0, 0, 0, 0, time.UTC)
}

// dir returns the day directory below prefix, with a trailing slash.
func (k dayKey) dir(prefix string) string {
	sid := strings.TrimPrefix(k.sid.String(), mseed.SourceIDPrefix)
	return path.Join(prefix, sid, fmt.Sprintf("%04d", k.year), fmt.Sprintf("%03d", k.doy)) + "/"
}

func (k dayKey) volumeName(prefix string, seq int, c Compression) string {
	return fmt.Sprintf("%s%06d%s%s", k.dir(prefix), seq, volumeExt, c.Ext())
}

// parseVolumeName is the inverse of dayKey.volumeName.
func parseVolumeName(prefix, name string) (Volume, error) {
	rel := strings.TrimPrefix(name, prefix)
	rel = strings.TrimPrefix(rel, "/")
	parts := strings.Split(rel, "/")
	if len(parts) != 4 {
		return Volume{}, fmt.Errorf("volume %q: want SID/YYYY/DDD/SEQ%s", name, volumeExt)
	}

	sid, err := mseed.ParseSourceID(mseed.SourceIDPrefix + parts[0])
	if err != nil {
		return Volume{}, fmt.Errorf("volume %q: %w", name, err)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return Volume{}, fmt.Errorf("volume %q: year: %w", name, err)
	}
	doy, err := strconv.Atoi(parts[2])
	if err != nil || doy < 1 || doy > 366 {
		return Volume{}, fmt.Errorf("volume %q: invalid day of year %q", name, parts[2])
	}

	base := parts[3]
	var comp Compression
	switch {
	case strings.HasSuffix(base, volumeExt+CompressionLZ4.Ext()):
		comp = CompressionLZ4
	case strings.HasSuffix(base, volumeExt+CompressionZSTD.Ext()):
		comp = CompressionZSTD
	case strings.HasSuffix(base, volumeExt):
	default:
		return Volume{}, fmt.Errorf("volume %q: not a %s file", name, volumeExt)
	}
	seq, err := strconv.Atoi(strings.TrimSuffix(base, volumeExt+comp.Ext()))
	if err != nil || seq < 1 {
		return Volume{}, fmt.Errorf("volume %q: invalid sequence number", name)
	}

	k := dayKey{sid: sid, year: year, doy: doy}
	return Volume{Name: name, SourceID: sid, Day: k.start(), Seq: seq, Compression: comp}, nil
}
