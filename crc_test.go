package modbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16Vector(t *testing.T) {
	data := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	require.Equal(t, uint16(0xCDC5), crc16Shift(data))
	require.Equal(t, uint16(0xCDC5), crc16Lookup(data))
}

func TestCRC16TableAndShiftAgree(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xFF},
		{0x01, 0x05, 0x00, 0x02, 0xFF, 0x00},
		{0x01, 0x10, 0x00, 0x05, 0x00, 0x02, 0x04, 0x00, 0x01, 0x00, 0x02},
	}
	for _, in := range inputs {
		require.Equal(t, crc16Shift(in), crc16Lookup(in), "mismatch for %v", in)
	}
}
