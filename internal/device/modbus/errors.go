// internal/device/modbus/errors.go
package modbus

import "fmt"

// Adapter-local codes, outside the Modbus exception space.
const (
	codeBadUnit   uint16 = 0x100
	codeShortRead uint16 = 0x101
)

var exceptionTexts = map[uint16]string{
	1:  "illegal function",
	2:  "illegal data address",
	3:  "illegal data value",
	4:  "server device failure",
	5:  "acknowledge",
	6:  "server device busy",
	8:  "memory parity error",
	10: "gateway path unavailable",
	11: "gateway target device failed to respond",
}

// ExceptionText maps a Modbus exception code to text.
func ExceptionText(code uint16) string {
	if s, ok := exceptionTexts[code]; ok {
		return s
	}
	return fmt.Sprintf("modbus exception %d", code)
}
