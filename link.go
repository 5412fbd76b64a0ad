package modbus

import (
	"context"
	"time"
)

// Link is the narrow contract the serial port / RS-485 driver must satisfy.
// Everything about opening, configuring, or idle-timing the physical line is
// deliberately outside this package; Link only carries the operations the
// engine needs to turn a composed response into bytes on the wire.
type Link interface {
	// Transmit sends data synchronously, returning once every byte has been
	// handed to the driver (not necessarily clocked out — see
	// WaitTransmitComplete). timeout bounds the blocking-path send.
	Transmit(ctx context.Context, data []byte, timeout time.Duration) error

	// TransmitAsync begins a non-blocking (DMA) transfer and returns
	// immediately; the driver must invoke Instance.OnTxComplete when done.
	TransmitAsync(data []byte) error

	// WaitTransmitComplete blocks until the transmit-complete hardware flag
	// is set, i.e. until the final stop bit has actually clocked out. Only
	// called when RS-485 is enabled, immediately before flipping DE/RE back
	// to receive.
	WaitTransmitComplete(ctx context.Context) error

	// SetDirection drives the RS-485 DE/RE line: true selects transmit
	// polarity, false selects receive polarity.
	SetDirection(tx bool) error

	// ArmReceive re-arms the driver to fill buf with the next byte run.
	ArmReceive(buf []byte) error
}

// RS485Config controls half-duplex turnaround. SetDirection speaks logical
// transmit/receive; which electrical level that maps to on the DE/RE pin is
// the Link implementation's business (see serialio.RS485GPIO). TurnDelay is
// an optional settle time between asserting transmit and the first byte, for
// transceivers that need it.
type RS485Config struct {
	Enabled   bool
	TurnDelay time.Duration
}

// RuntimeOptions are per-instance runtime flags: DMA transmit vs blocking,
// and CRC table vs shift-based CRC.
type RuntimeOptions struct {
	UseDMATx    bool
	UseCRCTable bool
}
