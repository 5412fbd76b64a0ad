package modbus

// pdu is the Protocol Data Unit: the bytes between address and CRC.
type pdu struct {
	function byte
	data     []byte
}

// broadcastAddr is the respond-always broadcast variant: the engine
// answers with its real address even though the request targeted 0xFF.
const broadcastAddr = 0xFF

// maxFrameSize is the RTU ceiling: address, function, a PDU of at most 252
// octets, and the two CRC octets.
const maxFrameSize = 256

// validateFrame applies the three acceptance tests in order:
// length, address, CRC. Any failure is a silent drop (ok=false, no error) —
// validation failures are ambient bus noise, not something to report.
func validateFrame(frame []byte, slaveAddr byte, useCRCTable bool) (p pdu, broadcast bool, ok bool) {
	if len(frame) < 4 || len(frame) > maxFrameSize {
		return pdu{}, false, false
	}
	addr := frame[0]
	if addr != slaveAddr && addr != broadcastAddr {
		return pdu{}, false, false
	}
	n := len(frame)
	want := computeCRC16(frame[:n-2], useCRCTable)
	got := getWordLE(frame, n-2)
	if want != got {
		return pdu{}, false, false
	}
	return pdu{function: frame[1], data: frame[2 : n-2]}, addr == broadcastAddr, true
}

// buildResponse assembles a normal response frame into dst[:0]: addr,
// function, payload, then the CRC trailer in little-endian order (opposite
// the big-endian convention used for register data within the payload).
// Passing the instance's transmit buffer as dst keeps steady-state frame
// assembly allocation-free.
func buildResponse(dst []byte, slaveAddr byte, function byte, payload []byte, useCRCTable bool) []byte {
	out := append(dst[:0], slaveAddr, function)
	out = append(out, payload...)
	crc := computeCRC16(out, useCRCTable)
	out = append(out, 0, 0)
	setWordLE(out, len(out)-2, crc)
	return out
}

// buildExceptionFrame assembles an exception frame: addr,
// function|0x80, exception code, CRC.
func buildExceptionFrame(dst []byte, slaveAddr byte, function byte, exc *Exception, useCRCTable bool) []byte {
	p := exc.asPDU(function)
	return buildResponse(dst, slaveAddr, p.function, p.data, useCRCTable)
}
