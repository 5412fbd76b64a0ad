package modbus

// handleReadHolding implements function 0x03 Read Holding Registers.
func handleReadHolding(ins *Instance, data []byte) ([]byte, *Exception) {
	return readRegisters(ins.registerFile.HoldingLen(), ins.registerFile.ReadHolding, data)
}

// handleReadInput implements function 0x04 Read Input Registers.
func handleReadInput(ins *Instance, data []byte) ([]byte, *Exception) {
	return readRegisters(ins.registerFile.InputLen(), ins.registerFile.ReadInput, data)
}

func readRegisters(regionLen int, read func(addr, count int) []uint16, data []byte) ([]byte, *Exception) {
	if regionLen == 0 {
		return nil, IllegalFunctionF("register region not configured")
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
	if quantity < 1 || quantity > 125 {
		return nil, IllegalValueF("register quantity %d out of range [1,125]", quantity)
	}
	if exc := checkRange(regionLen, int(addr), int(quantity)); exc != nil {
		return nil, exc
	}
	vals := read(int(addr), int(quantity))

	b := &dataBuilder{}
	b.byte(byte(2 * len(vals)))
	b.words(vals)
	return b.data, nil
}

// handleWriteSingleRegister implements function 0x06 Write Single Register.
func handleWriteSingleRegister(ins *Instance, data []byte) ([]byte, *Exception) {
	regionLen := ins.registerFile.HoldingLen()
	if regionLen == 0 {
		return nil, IllegalFunctionF("holding registers region not configured")
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
		return nil, IllegalAddressF("holding address %d exceeds region of %d", addr, regionLen)
	}
	if ins.writeCB != nil && !ins.writeCB(0x06, addr, 1) {
		return nil, SlaveFailureF("write callback rejected register write at %d", addr)
	}
	ins.registerFile.WriteHolding(int(addr), []uint16{value})

	b := &dataBuilder{}
	b.word(addr)
	b.word(value)
	return b.data, nil
}

// handleWriteMultipleRegisters implements function 0x10 Write Multiple Registers.
func handleWriteMultipleRegisters(ins *Instance, data []byte) ([]byte, *Exception) {
	regionLen := ins.registerFile.HoldingLen()
	if regionLen == 0 {
		return nil, IllegalFunctionF("holding registers region not configured")
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
	raw, err := r.bytesRaw(int(byteCount))
	if err != nil {
		return nil, IllegalValueF("%v", err)
	}
	if quantity < 1 || quantity > 125 || int(byteCount) != 2*int(quantity) {
		return nil, IllegalValueF("register write quantity %d / byte count %d inconsistent", quantity, byteCount)
	}
	if exc := checkRange(regionLen, int(addr), int(quantity)); exc != nil {
		return nil, exc
	}
	if ins.writeCB != nil && !ins.writeCB(0x10, addr, quantity) {
		return nil, SlaveFailureF("write callback rejected multi-register write at %d", addr)
	}
	vals := make([]uint16, quantity)
	for i := range vals {
		vals[i] = getWord(raw, 2*i)
	}
	ins.registerFile.WriteHolding(int(addr), vals)

	b := &dataBuilder{}
	b.word(addr)
	b.word(quantity)
	return b.data, nil
}
