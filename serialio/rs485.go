package serialio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// Direction drives an RS-485 transceiver's DE/RE line, satisfying the one
// GPIO operation modbus.Link.SetDirection needs; turnaround only ever
// needs a single digital write.
type Direction interface {
	SetDirection(tx bool) error
}

// RS485GPIO drives one Raspberry Pi GPIO pin as a transceiver's DE/RE line.
type RS485GPIO struct {
	pin      rpio.Pin
	polarity bool // true: high = transmit
}

// OpenRS485GPIO opens the rpio memory map; NewRS485GPIO then configures its
// pin as output. It must be called before any RS485GPIO is constructed and closed once, at
// process shutdown, via CloseRS485GPIO.
func OpenRS485GPIO() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("serialio: open gpio: %w", err)
	}
	return nil
}

// CloseRS485GPIO releases the rpio memory map.
func CloseRS485GPIO() error {
	return rpio.Close()
}

// NewRS485GPIO binds a Direction to the given BCM pin number. txPolarity
// true means driving the pin high selects transmit.
func NewRS485GPIO(pinNumber int, txPolarity bool) *RS485GPIO {
	pin := rpio.Pin(pinNumber)
	pin.Output()
	return &RS485GPIO{pin: pin, polarity: txPolarity}
}

// SetDirection implements Direction.
func (d *RS485GPIO) SetDirection(tx bool) error {
	high := tx == d.polarity
	if high {
		d.pin.High()
	} else {
		d.pin.Low()
	}
	return nil
}
