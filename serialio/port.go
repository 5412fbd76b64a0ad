// Package serialio is the host-side adapter binding a real serial line (and
// optionally an RS-485 transceiver's DE/RE pin) to the modbus.Link contract.
// None of this is part of the protocol engine itself; the engine only ever
// sees it through the Link interface.
package serialio

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	mbrtu "github.com/rolfl/mbrtu"
)

// Port wraps a go.bug.st/serial connection; NewLink turns it into a full
// modbus.Link. Reads are driven by a separate idle-line watcher (see
// idle.go); Port itself only does the blocking/async transmit half.
type Port struct {
	conn   serial.Port
	logger *zap.Logger
}

// Config describes how to open the physical line.
type Config struct {
	Device   string
	BaudRate int
	Parity   serial.Parity
	DataBits int
	StopBits serial.StopBits
}

// Open configures and opens the serial device.
func Open(cfg Config, logger *zap.Logger) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		Parity:   cfg.Parity,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
	}
	conn, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %s: %w", cfg.Device, err)
	}
	return &Port{conn: conn, logger: logger}, nil
}

// Close releases the underlying file descriptor.
func (p *Port) Close() error {
	return p.conn.Close()
}

// Transmit implements modbus.Link: a synchronous write bounded by timeout.
func (p *Port) Transmit(ctx context.Context, data []byte, timeout time.Duration) error {
	written := 0
	deadline := time.Now().Add(timeout)
	for written < len(data) {
		if time.Now().After(deadline) {
			return fmt.Errorf("serialio: transmit timed out after %v", timeout)
		}
		n, err := p.conn.Write(data[written:])
		if err != nil {
			return fmt.Errorf("serialio: write: %w", err)
		}
		written += n
	}
	return nil
}

// TransmitAsync starts a write in a goroutine; this adapter has no real DMA
// engine, so "async" just means "don't block the caller" — OnTxComplete is
// invoked once the write syscall returns.
func (p *Port) TransmitAsync(data []byte, onComplete func()) error {
	go func() {
		_, _ = p.conn.Write(data)
		if onComplete != nil {
			onComplete()
		}
	}()
	return nil
}

// WaitTransmitComplete blocks until the kernel reports every queued byte has
// been clocked out (tcdrain). Write returning only means the driver accepted
// the bytes; without the drain, releasing an RS-485 transceiver's DE line
// here would truncate the final octet.
func (p *Port) WaitTransmitComplete(ctx context.Context) error {
	return p.conn.Drain()
}

// SetDirection is a no-op on a bare Port; RS-485 direction control goes
// through the Direction passed to NewLink (see RS485GPIO in rs485.go). Port
// alone does not satisfy modbus.Link, since its TransmitAsync takes a
// completion callback.
func (p *Port) SetDirection(tx bool) error {
	return nil
}

// ArmReceive is a hint only: go.bug.st/serial has no separate "start
// receiving into this buffer" step, so the actual read loop lives in
// IdleLineReader (idle.go), which reads continuously and reports idle-
// delimited runs via a callback instead of filling a caller-supplied buffer
// per call.
func (p *Port) ArmReceive(buf []byte) error {
	return nil
}

// Read exposes the raw connection for IdleLineReader.
func (p *Port) Read(buf []byte) (int, error) {
	return p.conn.Read(buf)
}

var _ mbrtu.Link = (*linkAdapter)(nil)

// linkAdapter composes a Port with an IdleLineReader-driven Instance and an
// optional RS485Direction, satisfying mbrtu.Link in full (TransmitAsync's
// signature differs from Port's above, which takes a completion callback
// since it has no Instance to call OnTxComplete on by itself).
type linkAdapter struct {
	port      *Port
	direction Direction
	instance  *mbrtu.Instance
}

// NewLink wires a Port (and optional RS485 direction control) into the
// mbrtu.Link contract for a specific Instance.
func NewLink(port *Port, direction Direction, instance *mbrtu.Instance) mbrtu.Link {
	return &linkAdapter{port: port, direction: direction, instance: instance}
}

func (l *linkAdapter) Transmit(ctx context.Context, data []byte, timeout time.Duration) error {
	return l.port.Transmit(ctx, data, timeout)
}

func (l *linkAdapter) TransmitAsync(data []byte) error {
	return l.port.TransmitAsync(data, l.instance.OnTxComplete)
}

func (l *linkAdapter) WaitTransmitComplete(ctx context.Context) error {
	return l.port.WaitTransmitComplete(ctx)
}

func (l *linkAdapter) SetDirection(tx bool) error {
	if l.direction == nil {
		return nil
	}
	return l.direction.SetDirection(tx)
}

func (l *linkAdapter) ArmReceive(buf []byte) error {
	return l.port.ArmReceive(buf)
}
