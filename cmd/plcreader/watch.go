// cmd/plcreader/watch.go
package main

import (
	"fmt"
	"strings"

	"github.com/xmcchv/plc-test/internal/config"
	"github.com/xmcchv/plc-test/internal/values"
)

// formatWatch renders one watch entry as "name=value".
// Uncovered offsets print as "name=?".
func formatWatch(a *values.Accessor, w config.WatchConfig) string {
	var (
		v   any
		err error
	)

	switch strings.ToLower(w.Type) {
	case "bool":
		v, err = a.LookupBool(w.DB, w.Offset, w.Bit)
	case "byte":
		v, err = a.LookupByte(w.DB, w.Offset)
	case "int16":
		v, err = a.LookupInt16(w.DB, w.Offset)
	case "uint16":
		v, err = a.LookupUint16(w.DB, w.Offset)
	case "int32":
		v, err = a.LookupInt32(w.DB, w.Offset)
	case "uint32":
		v, err = a.LookupUint32(w.DB, w.Offset)
	case "float32":
		v, err = a.LookupFloat32(w.DB, w.Offset)
	default:
		return fmt.Sprintf("%s=<bad type %q>", w.Name, w.Type)
	}

	if err != nil {
		return w.Name + "=?"
	}
	return fmt.Sprintf("%s=%v", w.Name, v)
}
