package modbus

// handlerFunc executes one function code's request against an Instance's
// bound register file and returns the response payload, or an exception.
type handlerFunc func(ins *Instance, data []byte) ([]byte, *Exception)

var handlers = map[byte]handlerFunc{
	0x01: handleReadCoils,
	0x02: handleReadDiscretes,
	0x03: handleReadHolding,
	0x04: handleReadInput,
	0x05: handleWriteSingleCoil,
	0x06: handleWriteSingleRegister,
	0x0F: handleWriteMultipleCoils,
	0x10: handleWriteMultipleRegisters,
	0x64: handleCustomConfig,
}

// dispatch routes a validated request PDU to its handler. Any
// function code outside the supported set is exception 0x01.
func dispatch(ins *Instance, p pdu) ([]byte, *Exception) {
	h, found := handlers[p.function]
	if !found {
		return nil, IllegalFunctionF("function code 0x%02X not supported", p.function)
	}
	return h(ins, p.data)
}

// checkRange validates that [addr, addr+count) lies within a region of the
// given length, the common test behind every per-function range check.
func checkRange(regionLen, addr, count int) *Exception {
	if addr+count > regionLen {
		return IllegalAddressF("address %d, count %d exceeds region of %d", addr, count, regionLen)
	}
	return nil
}
