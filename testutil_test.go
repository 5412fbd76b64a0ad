package modbus

import (
	"context"
	"sync"
	"time"
)

// fakeLink is a minimal in-memory Link used by the engine's own tests; it
// has nothing to do with any real transport.
type fakeLink struct {
	mu          sync.Mutex
	txFrames    [][]byte
	directionTx bool
	armed       []byte
	waitCalls   int
}

func (f *fakeLink) Transmit(ctx context.Context, data []byte, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.txFrames = append(f.txFrames, cp)
	return nil
}

func (f *fakeLink) TransmitAsync(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.txFrames = append(f.txFrames, cp)
	return nil
}

func (f *fakeLink) WaitTransmitComplete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitCalls++
	return nil
}

func (f *fakeLink) SetDirection(tx bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directionTx = tx
	return nil
}

func (f *fakeLink) ArmReceive(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = buf
	return nil
}

func (f *fakeLink) lastFrame() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.txFrames) == 0 {
		return nil
	}
	return f.txFrames[len(f.txFrames)-1]
}

func (f *fakeLink) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txFrames)
}

// newTestInstance wires up an Instance against a fakeLink and the given
// register file, ready to have handleFrame called directly.
func newTestInstance(rf *RegisterFile, addr byte) (*Instance, *fakeLink) {
	link := &fakeLink{}
	ins := NewInstance()
	cfg := Config{
		Link:         link,
		SlaveAddr:    addr,
		BaudRate:     9600,
		RxBufA:       make([]byte, 256),
		RxBufB:       make([]byte, 256),
		TxBuf:        make([]byte, 256),
		RegisterFile: rf,
		Options:      RuntimeOptions{UseCRCTable: true},
	}
	if err := ins.Init(cfg); err != nil {
		panic(err)
	}
	return ins, link
}

// buildRequest assembles a full RTU request frame with a correct CRC trailer.
func buildRequest(addr, function byte, payload []byte) []byte {
	frame := append([]byte{addr, function}, payload...)
	crc := crc16Lookup(frame)
	frame = append(frame, byte(crc), byte(crc>>8))
	return frame
}
