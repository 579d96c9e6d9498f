package hash

import (
	"hash"

	"github.com/klauspost/crc32"
)

// crc32cTable is pre-computed for the Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

var zeroCRC [4]byte

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// RecordCRC computes the CRC32C of buf as if the 4 bytes at offset were zero.
// buf is not modified.
func RecordCRC(buf []byte, offset int) uint32 {
	if offset < 0 || offset+4 > len(buf) {
		return CRC32C(buf)
	}
	crc := crc32.Update(0, crc32cTable, buf[:offset])
	crc = crc32.Update(crc, crc32cTable, zeroCRC[:])
	return crc32.Update(crc, crc32cTable, buf[offset+4:])
}
