package session

import (
	"github.com/google/gousb"
)

// DevSelectFn is a function that selects a single device out of a list
// of device descriptors or returns nil if none are suitable. This type
// is not meant to be implemented directly. Instead it is implemented
// internally by providing a list of DevFilterFn filters to
// WithSelector().
type DevSelectFn func(devs []*gousb.DeviceDesc) *gousb.DeviceDesc

// DevFilterFn is a function that selects a subset of devices out of a
// list of device descriptors or returns nil or an empty slice if none
// are suitable. It is used by WithSelector() to create a DevSelectFn
// that calls the filters and then selects the first remaining device.
type DevFilterFn func(devs []*gousb.DeviceDesc) []*gousb.DeviceDesc

// WithNoopDevFilter creates a filter function that accepts any device.
// It can be used as a noop or placeholder for another function.
func WithNoopDevFilter() DevFilterFn {
	return func(devs []*gousb.DeviceDesc) []*gousb.DeviceDesc {
		return devs
	}
}

// WithVIDPID creates a device filter function that keeps only devices
// matching one of the given vendor/product ID pairs.
//
// Example, select only the reference RTL2832U VID:PID:
//
//	WithVIDPID(gousb.ID(0x0bda), gousb.ID(0x2838))
func WithVIDPID(vid, pid gousb.ID) DevFilterFn {
	return func(devs []*gousb.DeviceDesc) []*gousb.DeviceDesc {
		var res []*gousb.DeviceDesc
		for _, dev := range devs {
			if dev.Vendor == vid && dev.Product == pid {
				res = append(res, dev)
			}
		}
		return res
	}
}

// WithBusAddress creates a device filter function that keeps only the
// device attached at the given USB bus number and device address.
func WithBusAddress(bus, addr int) DevFilterFn {
	return func(devs []*gousb.DeviceDesc) []*gousb.DeviceDesc {
		var res []*gousb.DeviceDesc
		for _, dev := range devs {
			if dev.Bus == bus && dev.Address == addr {
				res = append(res, dev)
			}
		}
		return res
	}
}

// WithPort creates a device filter function that keeps only the device
// attached at the given USB port number on its parent hub, as reported
// by gousb.DeviceDesc.Port.
func WithPort(port int) DevFilterFn {
	return func(devs []*gousb.DeviceDesc) []*gousb.DeviceDesc {
		var res []*gousb.DeviceDesc
		for _, dev := range devs {
			if dev.Port == port {
				res = append(res, dev)
			}
		}
		return res
	}
}
