package modbus

import "fmt"

// Exception is a Modbus exception response: a function-specific failure on an
// otherwise well-formed, correctly-addressed, CRC-valid frame.
type Exception struct {
	msg  string
	code uint8
}

func (e *Exception) Error() string {
	return e.msg
}

// Code is the Modbus exception code carried in the response PDU.
func (e *Exception) Code() uint8 {
	return e.code
}

// asPDU renders the exception as the PDU the wire expects:
// function|0x80, followed by the single exception-code octet.
func (e *Exception) asPDU(function byte) pdu {
	return pdu{function: function | 0x80, data: []byte{e.code}}
}

// IllegalFunctionF is exception 0x01: unsupported or unconfigured function code.
func IllegalFunctionF(format string, args ...interface{}) *Exception {
	return &Exception{fmt.Sprintf(format, args...), 0x01}
}

// IllegalAddressF is exception 0x02: the requested range exceeds a region's bounds.
func IllegalAddressF(format string, args ...interface{}) *Exception {
	return &Exception{fmt.Sprintf(format, args...), 0x02}
}

// IllegalValueF is exception 0x03: a quantity or field value outside its allowed range.
func IllegalValueF(format string, args ...interface{}) *Exception {
	return &Exception{fmt.Sprintf(format, args...), 0x03}
}

// SlaveFailureF is exception 0x04: the host write callback rejected the request.
func SlaveFailureF(format string, args ...interface{}) *Exception {
	return &Exception{fmt.Sprintf(format, args...), 0x04}
}
