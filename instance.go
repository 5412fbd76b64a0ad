/*
Package modbus implements the protocol engine of a Modbus RTU slave: frame
intake, validation, function dispatch, and the RS-485 link turnaround. It
deliberately contains no serial-port or GPIO code — the host supplies those
through the Link interface, and the engine supplies byte-exact responses.

A slave needs three things: a Link bound to the physical line, a
RegisterFile holding the four data regions, and an Instance tying them
together:

	rf := modbus.NewRegisterFile(64, 64, 64, 64)
	ins := modbus.NewInstance()
	err := ins.Init(modbus.Config{
	    Link:         link,
	    SlaveAddr:    1,
	    BaudRate:     9600,
	    RxBufA:       make([]byte, 256),
	    RxBufB:       make([]byte, 256),
	    TxBuf:        make([]byte, 256),
	    RegisterFile: rf,
	})

The host's receive path calls OnByteRun (or DeliverByteRun) once per
idle-delimited byte run, and its main loop calls Process repeatedly:

	for {
	    ins.Process(ctx)
	    // drain deferred work, sleep, etc.
	}

Several Instances may share one RegisterFile; each filters frames by its own
slave address. Each RegisterFile call, including a multi-register read or
write, is serialized as a whole; a host update spread over several
RegisterFile calls is not atomic with respect to engine requests — wrap both
sides in external serialization if snapshot semantics are required.
*/
package modbus

import (
	"context"
	"fmt"
	"sync/atomic"
)

// WriteFunc is the pre-write authorization callback: invoked before any
// write function's effect. Returning false yields exception 0x04.
type WriteFunc func(function byte, start, quantity uint16) bool

// CustomConfigFunc is invoked for function 0x64. Returning false
// yields exception 0x03.
type CustomConfigFunc func(paramAddr, paramVal uint16) bool

// Config is everything Init needs to bring up an Instance. Buffers are
// host-allocated and borrowed, not copied. Responses are assembled in TxBuf
// without allocating; request handlers and RegisterFile calls still allocate
// small per-request slices.
type Config struct {
	Link           Link
	SlaveAddr      byte
	BaudRate       uint32
	RxBufA, RxBufB []byte
	TxBuf          []byte
	RegisterFile   *RegisterFile
	RS485          RS485Config
	Options        RuntimeOptions
	WriteCB        WriteFunc
	CustomConfigCB CustomConfigFunc
	UserData       interface{}
}

const minBufferSize = 8

// Instance is a single Modbus RTU slave handle. Multiple Instances may
// legally share one *RegisterFile; an Instance itself holds no state
// another Instance touches.
type Instance struct {
	link Link

	slaveAddr uint32 // atomic
	baudRate  uint32 // atomic

	rxBufs     [2][]byte
	txBuf      []byte
	activeIdx  int32 // atomic: index the driver is currently filling
	pendingIdx int32 // atomic: index holding a completed, unprocessed run
	length     int32 // atomic
	ready      int32 // atomic, 0 or 1

	registerFile *RegisterFile
	rs485        RS485Config
	options      RuntimeOptions
	writeCB      WriteFunc
	customConfig CustomConfigFunc
	userData     interface{}

	pendingSave     PersistedConfig
	pendingSaveFlag int32 // atomic, 0 or 1

	diag *diagnostics
}

// NewInstance allocates a zero-value Instance; call Init before use.
func NewInstance() *Instance {
	return &Instance{diag: newDiagnostics()}
}

// Init validates configuration and arms the first receive. A non-nil error
// is a configuration-time fatal: the host decides whether to continue.
func (ins *Instance) Init(cfg Config) error {
	if cfg.Link == nil {
		return fmt.Errorf("modbus: link must not be nil")
	}
	if len(cfg.RxBufA) < minBufferSize || len(cfg.RxBufB) < minBufferSize {
		return fmt.Errorf("modbus: receive buffers must be at least %d bytes", minBufferSize)
	}
	if len(cfg.TxBuf) < minBufferSize {
		return fmt.Errorf("modbus: transmit buffer must be at least %d bytes", minBufferSize)
	}
	if cfg.SlaveAddr < 1 || cfg.SlaveAddr > 247 {
		return fmt.Errorf("modbus: slave address %d out of range [1,247]", cfg.SlaveAddr)
	}

	ins.link = cfg.Link
	atomic.StoreUint32(&ins.slaveAddr, uint32(cfg.SlaveAddr))
	atomic.StoreUint32(&ins.baudRate, cfg.BaudRate)
	ins.rxBufs = [2][]byte{cfg.RxBufA, cfg.RxBufB}
	ins.txBuf = cfg.TxBuf
	ins.registerFile = cfg.RegisterFile
	ins.rs485 = cfg.RS485
	ins.options = cfg.Options
	ins.writeCB = cfg.WriteCB
	ins.customConfig = cfg.CustomConfigCB
	ins.userData = cfg.UserData
	if ins.diag == nil {
		ins.diag = newDiagnostics()
	}

	atomic.StoreInt32(&ins.activeIdx, 0)
	atomic.StoreInt32(&ins.pendingIdx, 1)
	atomic.StoreInt32(&ins.length, 0)
	atomic.StoreInt32(&ins.ready, 0)

	if ins.rs485.Enabled {
		if err := ins.link.SetDirection(false); err != nil {
			return fmt.Errorf("modbus: set receive direction: %w", err)
		}
	}
	return ins.StartReceive()
}

// StartReceive re-arms the driver to fill the current active buffer. It is
// the error-recovery hook for hosts whose driver loses its receive state;
// Init also calls it.
func (ins *Instance) StartReceive() error {
	idx := atomic.LoadInt32(&ins.activeIdx)
	return ins.link.ArmReceive(ins.rxBufs[idx])
}

// OnByteRun is the producer-context entry point: called by the link
// layer whenever the line goes idle after a run of count bytes in the
// active buffer. It performs the ping-pong handoff and re-arms receive.
func (ins *Instance) OnByteRun(count int) {
	oldActive := atomic.LoadInt32(&ins.activeIdx)
	newActive := 1 - oldActive

	atomic.StoreInt32(&ins.pendingIdx, oldActive)
	atomic.StoreInt32(&ins.length, int32(count))
	atomic.StoreInt32(&ins.activeIdx, newActive)
	// ready is written last: the consumer's read of ready happens-before its
	// reads of pendingIdx/length only because of this ordering.
	atomic.StoreInt32(&ins.ready, 1)

	if err := ins.link.ArmReceive(ins.rxBufs[newActive]); err != nil {
		ins.diag.commError()
	}
}

// OnTxComplete is the producer-context entry point called after a DMA
// transmit finishes. In RS-485 mode it waits for the driver to confirm the
// transmit-complete flag, then flips the line back to receive.
func (ins *Instance) OnTxComplete() {
	if ins.rs485.Enabled {
		if err := ins.link.WaitTransmitComplete(context.Background()); err != nil {
			ins.diag.commError()
			return
		}
		_ = ins.link.SetDirection(false)
	}
}

// DeliverByteRun is a convenience producer entry point for hosts whose
// serial adapter reads bytes into its own slice rather than DMA-filling the
// Instance's active buffer directly (see serialio.IdleLineReader). It
// copies data into the active buffer and then calls OnByteRun, so callers
// that cannot hand the driver a pointer into rxBufs still get the same
// handoff semantics as OnByteRun.
func (ins *Instance) DeliverByteRun(data []byte) {
	idx := atomic.LoadInt32(&ins.activeIdx)
	n := copy(ins.rxBufs[idx], data)
	ins.OnByteRun(n)
}

// Process services at most one pending frame. Call repeatedly from the
// main loop.
func (ins *Instance) Process(ctx context.Context) {
	if atomic.LoadInt32(&ins.ready) == 0 {
		return
	}
	pidx := atomic.LoadInt32(&ins.pendingIdx)
	n := atomic.LoadInt32(&ins.length)
	atomic.StoreInt32(&ins.length, 0)
	atomic.StoreInt32(&ins.ready, 0)

	if n <= 0 {
		return
	}
	frame := ins.rxBufs[pidx][:n]
	ins.handleFrame(ctx, frame)
}

func (ins *Instance) handleFrame(ctx context.Context, frame []byte) {
	slaveAddr := byte(atomic.LoadUint32(&ins.slaveAddr))
	p, broadcast, ok := validateFrame(frame, slaveAddr, ins.options.UseCRCTable)
	if !ok {
		ins.diag.commError()
		return
	}
	ins.diag.message(broadcast)

	payload, exc := dispatch(ins, p)

	var response []byte
	if exc != nil {
		ins.diag.exception(exc.Code())
		response = buildExceptionFrame(ins.txBuf, slaveAddr, p.function, exc, ins.options.UseCRCTable)
	} else {
		response = buildResponse(ins.txBuf, slaveAddr, p.function, payload, ins.options.UseCRCTable)
	}
	ins.transmit(ctx, response)
}

// GetSlaveAddr, GetBaud, GetUserData, SetUserData are plain accessors.
func (ins *Instance) GetSlaveAddr() byte        { return byte(atomic.LoadUint32(&ins.slaveAddr)) }
func (ins *Instance) GetBaud() uint32           { return atomic.LoadUint32(&ins.baudRate) }
func (ins *Instance) GetUserData() interface{}  { return ins.userData }
func (ins *Instance) SetUserData(v interface{}) { ins.userData = v }

// SetSlaveAddr and SetBaud are runtime reconfiguration: they update the
// instance's notion of its own address/baud but never touch the UART
// themselves — the host re-inits the physical link separately if the wire
// baud changes.
func (ins *Instance) SetSlaveAddr(addr byte) error {
	if addr < 1 || addr > 247 {
		return fmt.Errorf("modbus: slave address %d out of range [1,247]", addr)
	}
	atomic.StoreUint32(&ins.slaveAddr, uint32(addr))
	return nil
}

func (ins *Instance) SetBaud(baud uint32) error {
	if baud == 0 {
		return fmt.Errorf("modbus: baud rate must be non-zero")
	}
	atomic.StoreUint32(&ins.baudRate, baud)
	return nil
}

// SetCustomConfigCB installs the 0x64 callback after construction — useful
// when, as with DefaultCustomConfig, the callback closure needs a reference
// to the already-initialized Instance.
func (ins *Instance) SetCustomConfigCB(cb CustomConfigFunc) { ins.customConfig = cb }

// SetWriteCB installs the pre-write authorization callback after construction.
func (ins *Instance) SetWriteCB(cb WriteFunc) { ins.writeCB = cb }

// Diagnostics returns a snapshot of this instance's bus counters.
func (ins *Instance) Diagnostics() BusDiagnostics {
	return ins.diag.snapshot()
}

// markPendingConfigSave flips the deferred-work flag function 0x64 relies
// on: the callback must never persist inline, only signal.
func (ins *Instance) markPendingConfigSave(cfg PersistedConfig) {
	ins.pendingSave = cfg
	atomic.StoreInt32(&ins.pendingSaveFlag, 1)
}

// PendingConfigSave reports whether the host has deferred persistence work
// to do, and the record to write if so. Call from the main loop's idle step.
func (ins *Instance) PendingConfigSave() (PersistedConfig, bool) {
	if atomic.LoadInt32(&ins.pendingSaveFlag) == 0 {
		return PersistedConfig{}, false
	}
	return ins.pendingSave, true
}

// ClearPendingConfigSave clears the deferred-work flag once the host has
// persisted the record.
func (ins *Instance) ClearPendingConfigSave() {
	atomic.StoreInt32(&ins.pendingSaveFlag, 0)
}
