package serialio

import (
	"time"

	"go.uber.org/zap"
)

// idleTimings returns Modbus RTU's inter-character and inter-frame idle
// windows for a given baud rate: 1.5 and 3.5 character times, each one
// character being 11 bit times (1 start + 8 data + 1 parity-or-none + 1
// stop, rounded up), with a floor of 1ms/2ms at high baud rates where the
// timer resolution would otherwise be meaningless.
func idleTimings(baud int) (charGap, frameGap time.Duration) {
	if baud <= 0 {
		baud = 9600
	}
	charTime := time.Second * 11 / time.Duration(baud)
	charGap = charTime * 3 / 2
	frameGap = charTime * 7 / 2
	if charGap < time.Millisecond {
		charGap = time.Millisecond
	}
	if frameGap < 2*time.Millisecond {
		frameGap = 2 * time.Millisecond
	}
	return charGap, frameGap
}

// IdleLineReader reads bytes off a Port continuously and reports each idle-
// delimited run through its callback, the way a UART's idle-line interrupt
// would on real hardware: one goroutine accumulates bytes and a reset
// timer marks the frame boundary once the line has been quiet for a full
// inter-frame gap.
type IdleLineReader struct {
	port     *Port
	baud     int
	logger   *zap.Logger
	onIdle   func(frame []byte)
	maxFrame int
}

// NewIdleLineReader constructs a reader; onIdle is invoked with each
// idle-delimited byte run (a fresh slice, safe to retain).
func NewIdleLineReader(port *Port, baud int, onIdle func(frame []byte), logger *zap.Logger) *IdleLineReader {
	return &IdleLineReader{port: port, baud: baud, onIdle: onIdle, maxFrame: 256, logger: logger}
}

// Run reads until the port errors or stop is closed. It is meant to be
// launched in its own goroutine by the caller.
func (r *IdleLineReader) Run(stop <-chan struct{}) {
	_, frameGap := idleTimings(r.baud)
	buf := make([]byte, 0, r.maxFrame)
	readBuf := make([]byte, r.maxFrame)
	timer := time.NewTimer(frameGap)
	defer timer.Stop()

	type readResult struct {
		data []byte
		err  error
	}
	reads := make(chan readResult, 1)
	go func() {
		for {
			n, err := r.port.Read(readBuf)
			var data []byte
			if n > 0 {
				// Copy out of readBuf before looping back into the next
				// Read call, which reuses the same backing array and would
				// otherwise race with the consumer below.
				data = append([]byte(nil), readBuf[:n]...)
			}
			reads <- readResult{data, err}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-stop:
			return
		case res := <-reads:
			if res.err != nil {
				if r.logger != nil {
					r.logger.Warn("serial read error", zap.Error(res.err))
				}
				return
			}
			if len(res.data) > 0 {
				if len(buf)+len(res.data) > r.maxFrame {
					// Overrun: drop the run so far, start fresh on the next byte.
					buf = buf[:0]
				}
				buf = append(buf, res.data...)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(frameGap)
			}
		case <-timer.C:
			if len(buf) > 0 {
				frame := append([]byte(nil), buf...)
				buf = buf[:0]
				r.onIdle(frame)
			}
			timer.Reset(frameGap)
		}
	}
}
