//go:build windows

package pcan

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
	"unsafe"
)

type dllDriver struct {
	initialize   *windows.LazyProc
	write        *windows.LazyProc
	uninitialize *windows.LazyProc
}

func loadDLL() (driver, error) {
	dll := windows.NewLazyDLL(dllName)
	if err := dll.Load(); err != nil {
		return nil, errors.Wrapf(err, "unable to load %s", dllName)
	}
	d := &dllDriver{
		initialize:   dll.NewProc("CAN_Initialize"),
		write:        dll.NewProc("CAN_Write"),
		uninitialize: dll.NewProc("CAN_Uninitialize"),
	}
	for _, proc := range []*windows.LazyProc{d.initialize, d.write, d.uninitialize} {
		if err := proc.Find(); err != nil {
			return nil, errors.Wrapf(err, "%s is missing %s", dllName, proc.Name)
		}
	}
	return d, nil
}

// plug and play hardware needs no type, port or interrupt
func (d *dllDriver) Initialize(channel uint16, btr uint16) uint32 {
	r1, _, _ := d.initialize.Call(uintptr(channel), uintptr(btr), 0, 0, 0)
	return uint32(r1)
}

func (d *dllDriver) Write(channel uint16, msg *Msg) uint32 {
	r1, _, _ := d.write.Call(uintptr(channel), uintptr(unsafe.Pointer(msg)))
	return uint32(r1)
}

func (d *dllDriver) Uninitialize(channel uint16) uint32 {
	r1, _, _ := d.uninitialize.Call(uintptr(channel))
	return uint32(r1)
}
