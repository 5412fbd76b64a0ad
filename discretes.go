package modbus

// handleReadDiscretes implements function 0x02 Read Discrete Inputs.
func handleReadDiscretes(ins *Instance, data []byte) ([]byte, *Exception) {
	regionLen := ins.registerFile.DiscretesLen()
	if regionLen == 0 {
		return nil, IllegalFunctionF("discrete inputs region not configured")
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
		return nil, IllegalValueF("discrete input quantity %d out of range [1,2000]", quantity)
	}
	if exc := checkRange(regionLen, int(addr), int(quantity)); exc != nil {
		return nil, exc
	}
	bits := ins.registerFile.ReadDiscretes(int(addr), int(quantity))
	packed := packBits(bits)

	b := &dataBuilder{}
	b.byte(byte(len(packed)))
	b.bytes(packed)
	return b.data, nil
}
