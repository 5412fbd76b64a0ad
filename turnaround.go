package modbus

import (
	"context"
	"time"
)

const minTransmitTimeout = 100 * time.Millisecond

// computeTransmitTimeout sizes the blocking-path send:
// total_len*10*1000/baud_rate ms (10 bits/octet: 1 start + 8 data + 1 stop),
// plus a margin of max(tx_time/10, 50)ms, floored at 100ms. The margin
// scales with the computed transmit time itself, not a separately
// configured value.
func computeTransmitTimeout(totalLen int, baud uint32) time.Duration {
	if baud == 0 {
		return minTransmitTimeout
	}
	txMs := time.Duration(totalLen) * 10 * time.Second / time.Duration(baud)
	margin := txMs / 10
	if margin < 50*time.Millisecond {
		margin = 50 * time.Millisecond
	}
	timeout := txMs + margin
	if timeout < minTransmitTimeout {
		return minTransmitTimeout
	}
	return timeout
}

// transmit performs the link turnaround: direction flip, dispatch
// (blocking or DMA), and — mandatorily, for RS-485 — spinning on the
// transmit-complete flag before releasing the line back to receive.
func (ins *Instance) transmit(ctx context.Context, frame []byte) {
	if ins.rs485.Enabled {
		if err := ins.link.SetDirection(true); err != nil {
			ins.diag.commError()
			return
		}
		if ins.rs485.TurnDelay > 0 {
			time.Sleep(ins.rs485.TurnDelay)
		}
	}

	if ins.options.UseDMATx {
		if err := ins.link.TransmitAsync(frame); err != nil {
			ins.diag.commError()
		}
		// OnTxComplete (producer context) handles the RS-485 direction flip
		// once the driver signals completion.
		return
	}

	timeout := computeTransmitTimeout(len(frame), ins.GetBaud())
	if err := ins.link.Transmit(ctx, frame, timeout); err != nil {
		ins.diag.commError()
		return
	}

	if ins.rs485.Enabled {
		// Returning from Transmit means bytes are enqueued, not necessarily
		// on the wire yet; releasing DE/RE before the final stop bit clocks
		// out truncates the last octet.
		if err := ins.link.WaitTransmitComplete(ctx); err != nil {
			ins.diag.commError()
			return
		}
		if err := ins.link.SetDirection(false); err != nil {
			ins.diag.commError()
		}
	}
}
