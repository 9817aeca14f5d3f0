package iss

import (
	"fmt"
	"io"
)

// Trace levels.
const (
	traceWarning = iota
	traceInfo
	traceDebug
)

// Trace writes core diagnostics to a writer, filtered by level. The zero
// value is silent.
type Trace struct {
	w     io.Writer
	level int
	name  string
}

// Msg writes one trace line when the level is enabled.
func (t *Trace) Msg(level int, format string, args ...any) {
	if t.w == nil || level > t.level {
		return
	}
	fmt.Fprintf(t.w, "[%s] %s\n", t.name, fmt.Sprintf(format, args...))
}
