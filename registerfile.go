package modbus

// RegisterFile is the borrowed, not-owned data store backing the four
// Modbus regions. A zero-length region is "absent": dispatch rejects any
// function code that targets it with exception 0x01.
//
// All region sizes are fixed at construction, so a region's length can be
// read without synchronization; only reads/writes of element values go
// through the single request-executor goroutine below. Many callers
// (possibly several Instances) share one mutable store, and the executor
// serializes individual accesses. Multi-register operations still are not
// atomic as a whole across two separate engine calls — only within a
// single call's execution.
type RegisterFile struct {
	coils     []bool
	discretes []bool
	holding   []uint16
	input     []uint16
	exec      chan func()
	stop      chan struct{}
}

// NewRegisterFile allocates a register file with the given region sizes.
// Pass 0 for any region this deployment does not support.
func NewRegisterFile(nCoils, nDiscrete, nHolding, nInput int) *RegisterFile {
	rf := &RegisterFile{
		coils:     make([]bool, nCoils),
		discretes: make([]bool, nDiscrete),
		holding:   make([]uint16, nHolding),
		input:     make([]uint16, nInput),
		exec:      make(chan func()),
		stop:      make(chan struct{}),
	}
	go rf.run()
	return rf
}

func (rf *RegisterFile) run() {
	for {
		select {
		case fn := <-rf.exec:
			fn()
		case <-rf.stop:
			return
		}
	}
}

// Close stops the executor goroutine. Instances referencing this file must
// not be used afterward.
func (rf *RegisterFile) Close() {
	close(rf.stop)
}

func (rf *RegisterFile) do(fn func()) {
	done := make(chan struct{})
	rf.exec <- func() {
		fn()
		close(done)
	}
	<-done
}

// CoilsLen, DiscretesLen, HoldingLen, InputLen report region sizes; 0 means
// the region is absent.
func (rf *RegisterFile) CoilsLen() int     { return len(rf.coils) }
func (rf *RegisterFile) DiscretesLen() int { return len(rf.discretes) }
func (rf *RegisterFile) HoldingLen() int   { return len(rf.holding) }
func (rf *RegisterFile) InputLen() int     { return len(rf.input) }

// ReadCoils returns a copy of count coil values starting at addr. Caller
// must have already range-checked addr+count against CoilsLen().
func (rf *RegisterFile) ReadCoils(addr, count int) []bool {
	out := make([]bool, count)
	rf.do(func() { copy(out, rf.coils[addr:addr+count]) })
	return out
}

// WriteCoils writes vals starting at addr.
func (rf *RegisterFile) WriteCoils(addr int, vals []bool) {
	rf.do(func() { copy(rf.coils[addr:], vals) })
}

// ReadDiscretes returns a copy of count discrete-input values starting at addr.
func (rf *RegisterFile) ReadDiscretes(addr, count int) []bool {
	out := make([]bool, count)
	rf.do(func() { copy(out, rf.discretes[addr:addr+count]) })
	return out
}

// SetDiscretes is the host-side setter for discrete inputs (the engine
// itself never writes this region — it is read-only on the wire).
func (rf *RegisterFile) SetDiscretes(addr int, vals []bool) {
	rf.do(func() { copy(rf.discretes[addr:], vals) })
}

// ReadHolding returns a copy of count holding-register values starting at addr.
func (rf *RegisterFile) ReadHolding(addr, count int) []uint16 {
	out := make([]uint16, count)
	rf.do(func() { copy(out, rf.holding[addr:addr+count]) })
	return out
}

// WriteHolding writes vals starting at addr.
func (rf *RegisterFile) WriteHolding(addr int, vals []uint16) {
	rf.do(func() { copy(rf.holding[addr:], vals) })
}

// ReadInput returns a copy of count input-register values starting at addr.
func (rf *RegisterFile) ReadInput(addr, count int) []uint16 {
	out := make([]uint16, count)
	rf.do(func() { copy(out, rf.input[addr:addr+count]) })
	return out
}

// SetInput is the host-side setter for input registers (read-only on the wire).
func (rf *RegisterFile) SetInput(addr int, vals []uint16) {
	rf.do(func() { copy(rf.input[addr:], vals) })
}
