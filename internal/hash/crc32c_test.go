package hash

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C_KnownVector(t *testing.T) {
	// RFC 3720 check value for "123456789".
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
}

func TestRecordCRC_IgnoresCRCField(t *testing.T) {
	buf := []byte("MS\x03\x00abcdefghijklmnopqrstuvwxyz0123456789")
	zeroed := append([]byte(nil), buf...)
	copy(zeroed[8:12], []byte{0, 0, 0, 0})

	want := CRC32C(zeroed)
	require.Equal(t, want, RecordCRC(buf, 8))

	binary.LittleEndian.PutUint32(buf[8:12], want)
	assert.Equal(t, want, RecordCRC(buf, 8), "stored CRC must not affect the result")
}

func TestNewCRC32C_Streaming(t *testing.T) {
	h := NewCRC32C()
	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	assert.Equal(t, CRC32C([]byte("123456789")), h.Sum32())
}
