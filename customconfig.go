package modbus

// Predefined param_addr values the custom-config callback is expected to
// honor; other values are free for host extension.
const (
	ConfigParamSlaveAddr = 0x0000
	ConfigParamBaudIndex = 0x0001
)

// handleCustomConfig implements function 0x64 Custom Configuration. Unlike
// the write function codes, the write callback is never consulted here.
func handleCustomConfig(ins *Instance, data []byte) ([]byte, *Exception) {
	if len(data) != 4 {
		return nil, IllegalValueF("custom config payload must be 4 bytes, got %d", len(data))
	}
	if ins.customConfig == nil {
		return nil, IllegalFunctionF("no custom config callback installed")
	}
	r := newReader(data)
	paramAddr, _ := r.word()
	paramVal, _ := r.word()

	if !ins.customConfig(paramAddr, paramVal) {
		return nil, IllegalValueF("custom config callback rejected param 0x%04X = 0x%04X", paramAddr, paramVal)
	}

	b := &dataBuilder{}
	b.word(paramAddr)
	b.word(paramVal)
	return b.data, nil
}

// DefaultCustomConfig builds a CustomConfigFunc implementing the two
// predefined parameters: slave address and baud-index. It flips the
// instance's deferred-save flag rather than persisting inline; the host
// drains PendingConfigSave from its idle loop.
func DefaultCustomConfig(ins *Instance) CustomConfigFunc {
	return func(paramAddr, paramVal uint16) bool {
		switch paramAddr {
		case ConfigParamSlaveAddr:
			if paramVal < 1 || paramVal > 247 {
				return false
			}
			if err := ins.SetSlaveAddr(byte(paramVal)); err != nil {
				return false
			}
		case ConfigParamBaudIndex:
			if paramVal < 1 || paramVal > 8 {
				return false
			}
			if err := ins.SetBaud(BaudTable[paramVal]); err != nil {
				return false
			}
		default:
			return false
		}
		ins.markPendingConfigSave(PersistedConfig{
			Magic:     PersistedConfigMagic,
			SlaveAddr: ins.GetSlaveAddr(),
			BaudRate:  ins.GetBaud(),
		})
		return true
	}
}
