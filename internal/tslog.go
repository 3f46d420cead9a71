package internal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// TSLog is a simple logger with colored outputs.
//
// A nil *TSLog discards everything, so components can be built without one.
type TSLog struct {
	// Out receives one line per call. Defaults to os.Stdout.
	Out io.Writer
	// NoColor disables the ANSI escapes around each line.
	NoColor bool

	mu sync.Mutex
}

// NewTSLog returns a logger writing to w.
func NewTSLog(w io.Writer) *TSLog {
	return &TSLog{Out: w}
}

func (z *TSLog) now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (z *TSLog) log(c string, f string, v ...interface{}) {
	if z == nil {
		return
	}

	out := fmt.Sprintf(f, v...)

	if c != "" && !z.NoColor {
		out = fmt.Sprintf("\033[%sm%s %s\033[0m", c, z.now(), out)
	} else {
		out = fmt.Sprintf("%s %s", z.now(), out)
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	w := z.Out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, out)
}

// Log logs
func (z *TSLog) Log(f string, v ...interface{}) {
	z.log("0", f, v...)
}

// Green greens output.
func (z *TSLog) Green(f string, v ...interface{}) {
	z.log("0;32", f, v...)
}

// Red reds output.
func (z *TSLog) Red(f string, v ...interface{}) {
	z.log("0;31", f, v...)
}

// Gray grays output.
func (z *TSLog) Gray(f string, v ...interface{}) {
	z.log("1;30", f, v...)
}
