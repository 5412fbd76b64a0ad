package modbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFrameTooShortIsDropped(t *testing.T) {
	_, _, ok := validateFrame([]byte{0x01, 0x03}, 0x01, true)
	require.False(t, ok)
}

func TestValidateFrameCRCBitFlipIsAlwaysDropped(t *testing.T) {
	frame := buildRequest(0x01, 0x03, []byte{0x00, 0x00, 0x00, 0x02})
	for _, bitIdx := range []int{0, 3, 7} {
		mutated := append([]byte(nil), frame...)
		byteIdx := len(mutated) - 2 + bitIdx/8
		mutated[byteIdx] ^= 1 << uint(bitIdx%8)
		_, _, ok := validateFrame(mutated, 0x01, true)
		require.False(t, ok, "bit %d should invalidate CRC", bitIdx)
	}
}

func TestValidateFrameAddressFiltering(t *testing.T) {
	frame := buildRequest(0x01, 0x03, []byte{0x00, 0x00, 0x00, 0x02})

	wrongAddr := append([]byte(nil), frame...)
	wrongAddr[0] = 0x02
	crc := crc16Lookup(wrongAddr[:len(wrongAddr)-2])
	wrongAddr[len(wrongAddr)-2] = byte(crc)
	wrongAddr[len(wrongAddr)-1] = byte(crc >> 8)
	_, _, ok := validateFrame(wrongAddr, 0x01, true)
	require.False(t, ok)

	broadcastFrame := buildRequest(0xFF, 0x03, []byte{0x00, 0x00, 0x00, 0x02})
	p, broadcast, ok := validateFrame(broadcastFrame, 0x01, true)
	require.True(t, ok)
	require.True(t, broadcast)
	require.Equal(t, byte(0x03), p.function)
}

func TestBuildExceptionFrameShape(t *testing.T) {
	for _, exc := range []*Exception{
		IllegalFunctionF("x"),
		IllegalAddressF("x"),
		IllegalValueF("x"),
		SlaveFailureF("x"),
	} {
		frame := buildExceptionFrame(nil, 0x01, 0x03, exc, true)
		require.Len(t, frame, 5)
		require.Equal(t, byte(0x03|0x80), frame[1])
		require.Equal(t, exc.Code(), frame[2])
		crc := getWordLE(frame, 3)
		require.Equal(t, crc16Lookup(frame[:3]), crc)
	}
}

func TestBuildResponseCRCTrailerIsLittleEndian(t *testing.T) {
	resp := buildResponse(nil, 0x01, 0x03, []byte{0x04, 0x00, 0x00, 0x00, 0x00}, true)
	n := len(resp)
	crc := crc16Lookup(resp[:n-2])
	require.Equal(t, byte(crc), resp[n-2])
	require.Equal(t, byte(crc>>8), resp[n-1])
}
