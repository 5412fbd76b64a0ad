package modbus

// handleReadCoils implements function 0x01 Read Coils.
func handleReadCoils(ins *Instance, data []byte) ([]byte, *Exception) {
	regionLen := ins.registerFile.CoilsLen()
	if regionLen == 0 {
		return nil, IllegalFunctionF("coils region not configured")
	}
	r := newReader(data)
	addr, err := r.word()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	quantity, err := r.word()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	if quantity < 1 || quantity > 2000 {
		return nil, IllegalValueF("coil quantity %d out of range [1,2000]", quantity)
	}
	if exc := checkRange(regionLen, int(addr), int(quantity)); exc != nil {
		return nil, exc
	}
	bits := ins.registerFile.ReadCoils(int(addr), int(quantity))
	packed := packBits(bits)

	b := &dataBuilder{}
	b.byte(byte(len(packed)))
	b.bytes(packed)
	return b.data, nil
}

// handleWriteSingleCoil implements function 0x05 Write Single Coil.
func handleWriteSingleCoil(ins *Instance, data []byte) ([]byte, *Exception) {
	regionLen := ins.registerFile.CoilsLen()
	if regionLen == 0 {
		return nil, IllegalFunctionF("coils region not configured")
	}
	r := newReader(data)
	addr, err := r.word()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	value, err := r.word()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	if int(addr) >= regionLen {
		return nil, IllegalAddressF("coil address %d exceeds region of %d", addr, regionLen)
	}
	if ins.writeCB != nil && !ins.writeCB(0x05, addr, 1) {
		return nil, SlaveFailureF("write callback rejected coil write at %d", addr)
	}
	// Only 0xFF00 or 0x0000 actually write; any other value is silently not
	// written but the frame is still echoed.
	if value == 0xFF00 {
		ins.registerFile.WriteCoils(int(addr), []bool{true})
	} else if value == 0x0000 {
		ins.registerFile.WriteCoils(int(addr), []bool{false})
	}

	b := &dataBuilder{}
	b.word(addr)
	b.word(value)
	return b.data, nil
}

// handleWriteMultipleCoils implements function 0x0F Write Multiple Coils.
func handleWriteMultipleCoils(ins *Instance, data []byte) ([]byte, *Exception) {
	regionLen := ins.registerFile.CoilsLen()
	if regionLen == 0 {
		return nil, IllegalFunctionF("coils region not configured")
	}
	r := newReader(data)
	addr, err := r.word()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	quantity, err := r.word()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	byteCount, err := r.byte()
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	packed, err := r.bytesRaw(int(byteCount))
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	if quantity < 1 || quantity > 2000 || int(byteCount) != (int(quantity)+7)/8 {
		return nil, IllegalValueF("coil write quantity %d / byte count %d inconsistent", quantity, byteCount)
	}
	if exc := checkRange(regionLen, int(addr), int(quantity)); exc != nil {
		return nil, exc
	}
	if ins.writeCB != nil && !ins.writeCB(0x0F, addr, quantity) {
		return nil, SlaveFailureF("write callback rejected multi-coil write at %d", addr)
	}
	bits := unpackBits(packed, int(quantity))
	ins.registerFile.WriteCoils(int(addr), bits)

	b := &dataBuilder{}
	b.word(addr)
	b.word(quantity)
	return b.data, nil
}
