// Package dump is a dry-run adapter that prints every frame instead of
// putting it on a bus.
package dump

import (
	"fmt"
	"github.com/fatih/color"
	"github.com/jd3nn1s/enginesim"
	"io"
	"strings"
	"sync"
)

var (
	blue   = color.New(color.FgHiBlue).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
)

type Adapter struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Adapter {
	return &Adapter{w: w}
}

func (a *Adapter) Initialize(ch enginesim.Channel, baud enginesim.BaudRate) enginesim.Status {
	a.printf("%s channel 0x%X at %d bit/s\n", yellow("init"), uint16(ch), uint32(baud))
	return enginesim.StatusOK
}

func (a *Adapter) Write(_ enginesim.Channel, f enginesim.Frame) enginesim.Status {
	a.printf("%s\n", FormatFrame(f))
	return enginesim.StatusOK
}

func (a *Adapter) Uninitialize(ch enginesim.Channel) enginesim.Status {
	a.printf("%s channel 0x%X\n", yellow("uninit"), uint16(ch))
	return enginesim.StatusOK
}

func (a *Adapter) printf(format string, args ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.w, format, args...)
}

// FormatFrame renders the signal name, identifier, length, a hex view and
// a binary view of the payload.
func FormatFrame(f enginesim.Frame) string {
	var out strings.Builder

	name := "-"
	if s, ok := enginesim.SignalForID(f.ID); ok {
		name = s.String()
	}
	out.WriteString(fmt.Sprintf("%-27s", name) + " || ")
	out.WriteString(blue("0x%08X", f.ID) + " || ")
	out.WriteString(fmt.Sprintf("%d", f.Length) + " || ")

	data := f.Data[:]
	if int(f.Length) < len(data) {
		data = data[:f.Length]
	}
	var hexView, binView []string
	for _, b := range data {
		hexView = append(hexView, fmt.Sprintf("%02X", b))
		binView = append(binView, fmt.Sprintf("%08b", b))
	}
	out.WriteString(green("%-23s", strings.Join(hexView, " ")))
	out.WriteString(" || ")
	out.WriteString(strings.Join(binView, " "))
	return out.String()
}
