package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceID(t *testing.T) {
	for _, s := range []string{
		"FDSN:XX_TEST__B_S_X",
		"FDSN:IU_ANMO_00_B_H_Z",
		"FDSN:XX_STA-1_10_VMON_L_1",
	} {
		sid, err := ParseSourceID(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, sid.String())
	}

	for _, s := range []string{
		"",
		"XX_TEST__B_S_X",
		"FDSN:XX_TEST_B_S_X",
		"FDSN:_TEST__B_S_X",
		"FDSN:XX_TEST__B__X",
		"FDSN:XX_TE ST__B_S_X",
		"FDSN:XX_TEST__B_S_X_EXTRA_LONG_ENOUGH_TO_EXCEED_THE_SIXTY_FOUR_BYTE_LIMIT",
	} {
		_, err := ParseSourceID(s)
		require.ErrorIs(t, err, ErrFormat, s)
		assert.ErrorIs(t, err, ErrInvalidSourceID, s)
	}
}

func TestSourceID_Order(t *testing.T) {
	a := MustParseSourceID("FDSN:XX_A__B_S_X")
	b := MustParseSourceID("FDSN:XX_B__B_S_X")
	assert.True(t, a < b)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, 1, b.Compare(a))
}

func TestSourceID_NSLC(t *testing.T) {
	sid, err := SourceIDFromNSLC("IU", "ANMO", "00", "BHZ")
	require.NoError(t, err)
	assert.Equal(t, SourceID("FDSN:IU_ANMO_00_B_H_Z"), sid)

	net, sta, loc, cha, err := sid.NSLC()
	require.NoError(t, err)
	assert.Equal(t, []string{"IU", "ANMO", "00", "BHZ"}, []string{net, sta, loc, cha})

	sid, err = SourceIDFromNSLC("XX", "STA", "", "VMON_L_1")
	require.NoError(t, err)
	_, _, _, cha, err = sid.NSLC()
	require.NoError(t, err)
	assert.Equal(t, "VMON_L_1", cha)

	_, err = SourceIDFromNSLC("XX", "STA", "", "BHZZ")
	require.ErrorIs(t, err, ErrInvalidSourceID)
}
