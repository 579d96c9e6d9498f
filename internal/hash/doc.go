// Package hash provides the checksum used for record integrity.
//
// miniSEED 3 records carry a CRC-32C (Castagnoli) over the complete record with
// the CRC field itself set to zero. The helpers here compute that value without
// copying the record:
//
//	crc := hash.RecordCRC(buf, crcOffset)
package hash
