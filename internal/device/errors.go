// internal/device/errors.go
package device

import (
	"errors"
	"fmt"
)

// ReadError is a non-zero result reported by the device for one read.
// Code is device-defined and opaque; Text is the human readable form.
type ReadError struct {
	DB    int
	Start int
	Code  uint16
	Text  string
}

func (e *ReadError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("device: read db=%d start=%d failed: code=%d", e.DB, e.Start, e.Code)
	}
	return fmt.Sprintf("device: read db=%d start=%d failed: %s", e.DB, e.Start, e.Text)
}

// codeNotConnected is reported for connection failures.
const codeNotConnected uint16 = 0xFFFF

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// nil yields 0. Errors that expose no code yield 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var re *ReadError
	if errors.As(err, &re) {
		return re.Code
	}
	if errors.Is(err, ErrNotConnected) {
		return codeNotConnected
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}

// ErrorText returns the text the device reported, or err.Error().
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	var re *ReadError
	if errors.As(err, &re) && re.Text != "" {
		return re.Text
	}
	return err.Error()
}
