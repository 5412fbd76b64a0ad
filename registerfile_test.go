package modbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterFileRoundTrip(t *testing.T) {
	rf := NewRegisterFile(4, 4, 4, 4)
	defer rf.Close()

	rf.WriteCoils(0, []bool{true, false, true})
	require.Equal(t, []bool{true, false, true}, rf.ReadCoils(0, 3))

	rf.WriteHolding(1, []uint16{0x1234, 0x5678})
	require.Equal(t, []uint16{0x1234, 0x5678}, rf.ReadHolding(1, 2))

	rf.SetDiscretes(2, []bool{true})
	require.Equal(t, []bool{true}, rf.ReadDiscretes(2, 1))

	rf.SetInput(0, []uint16{42})
	require.Equal(t, []uint16{42}, rf.ReadInput(0, 1))
}

func TestRegisterFileAbsentRegionHasZeroLength(t *testing.T) {
	rf := NewRegisterFile(0, 0, 8, 0)
	defer rf.Close()

	require.Equal(t, 0, rf.CoilsLen())
	require.Equal(t, 0, rf.DiscretesLen())
	require.Equal(t, 8, rf.HoldingLen())
	require.Equal(t, 0, rf.InputLen())
}

func TestRegisterFileSharedAcrossGoroutinesSeesAllWrites(t *testing.T) {
	rf := NewRegisterFile(0, 0, 16, 0)
	defer rf.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(addr int) {
			defer wg.Done()
			rf.WriteHolding(addr, []uint16{uint16(addr + 1)})
		}(i)
	}
	wg.Wait()

	vals := rf.ReadHolding(0, 16)
	for i, v := range vals {
		require.Equal(t, uint16(i+1), v, "register %d", i)
	}
}
