package modbus

// PersistedConfigMagic is the sentinel marking a PersistedConfig record as
// valid.
const PersistedConfigMagic uint32 = 0xDEADBEEF

// BaudTable maps the baud-index used by function 0x64 param_addr 0x0001 to an
// actual baud rate. Index 0 is invalid; indices 1-8 are the fixed set a
// master can select over the wire.
var BaudTable = [9]uint32{
	0: 0,
	1: 1200,
	2: 2400,
	3: 4800,
	4: 9600,
	5: 19200,
	6: 38400,
	7: 57600,
	8: 115200,
}

// DefaultSlaveAddr and DefaultBaudRate are the values a host should fall back
// to when a PersistedConfig record fails its magic-sentinel check.
const (
	DefaultSlaveAddr = 1
	DefaultBaudRate  = 9600
)

// PersistedConfig is the host-owned record the engine never reads or writes
// directly; it exists so the custom-config path (function 0x64) has a
// concrete shape to hand back to the host when signaling a pending save.
type PersistedConfig struct {
	Magic     uint32
	SlaveAddr uint8
	BaudRate  uint32
}

// Valid reports whether the record's magic sentinel matches.
func (c PersistedConfig) Valid() bool {
	return c.Magic == PersistedConfigMagic
}

// DefaultPersistedConfig is what a host should substitute when Valid() is false.
func DefaultPersistedConfig() PersistedConfig {
	return PersistedConfig{
		Magic:     PersistedConfigMagic,
		SlaveAddr: DefaultSlaveAddr,
		BaudRate:  DefaultBaudRate,
	}
}
