package modbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeTransmitTimeoutFloor(t *testing.T) {
	// Short frame at a high baud rate: tx time and margin are both tiny,
	// floored at 100ms.
	got := computeTransmitTimeout(8, 115200)
	require.Equal(t, 100*time.Millisecond, got)
}

func TestComputeTransmitTimeoutScalesWithLengthAndBaud(t *testing.T) {
	// 256 octets at 9600 baud: txMs = 256*10*1000/9600 ~= 266ms, plus a
	// margin of txMs/10 (~26.6ms, above the 50ms floor only once txMs>500ms,
	// so here the 50ms floor applies) ~= 316ms.
	got := computeTransmitTimeout(256, 9600)
	require.GreaterOrEqual(t, got, 266*time.Millisecond)
	require.Less(t, got, 400*time.Millisecond)
}

func TestComputeTransmitTimeoutMarginScalesWithTransmitTimeAtLowBaud(t *testing.T) {
	// 256 octets at 1200 baud: txMs = 256*10*1000/1200 ~= 2133ms, margin is
	// txMs/10 (~213ms, above the 50ms floor) rather than a fixed 50ms.
	got := computeTransmitTimeout(256, 1200)
	require.GreaterOrEqual(t, got, 2340*time.Millisecond)
	require.Less(t, got, 2360*time.Millisecond)
}

func TestRS485TurnaroundSpinsOnTransmitCompleteBeforeReceive(t *testing.T) {
	rf := NewRegisterFile(0, 0, 1, 0)
	defer rf.Close()

	link := &fakeLink{}
	ins := NewInstance()
	err := ins.Init(Config{
		Link:         link,
		SlaveAddr:    1,
		BaudRate:     9600,
		RxBufA:       make([]byte, 256),
		RxBufB:       make([]byte, 256),
		TxBuf:        make([]byte, 256),
		RegisterFile: rf,
		RS485:        RS485Config{Enabled: true},
		Options:      RuntimeOptions{UseCRCTable: true},
	})
	require.NoError(t, err)
	require.False(t, link.directionTx, "Init must leave the line in receive mode")

	req := buildRequest(0x01, 0x03, []byte{0x00, 0x00, 0x00, 0x01})
	ins.handleFrame(context.Background(), req)

	require.Equal(t, 1, link.waitCalls, "must spin on transmit-complete before releasing the line")
	require.False(t, link.directionTx, "line must be back in receive mode after turnaround")
}

func TestDMATransmitDefersDirectionFlipToOnTxComplete(t *testing.T) {
	rf := NewRegisterFile(0, 0, 1, 0)
	defer rf.Close()

	link := &fakeLink{}
	ins := NewInstance()
	err := ins.Init(Config{
		Link:         link,
		SlaveAddr:    1,
		BaudRate:     9600,
		RxBufA:       make([]byte, 256),
		RxBufB:       make([]byte, 256),
		TxBuf:        make([]byte, 256),
		RegisterFile: rf,
		RS485:        RS485Config{Enabled: true},
		Options:      RuntimeOptions{UseCRCTable: true, UseDMATx: true},
	})
	require.NoError(t, err)

	req := buildRequest(0x01, 0x03, []byte{0x00, 0x00, 0x00, 0x01})
	ins.handleFrame(context.Background(), req)

	require.True(t, link.directionTx, "DMA path must not flip back to receive until OnTxComplete")
	require.Equal(t, 0, link.waitCalls)

	ins.OnTxComplete()
	require.False(t, link.directionTx)
}
