package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/gousb"

	"github.com/ehelgesen1/librtlsdr/rtl"
)

// KnownDongle names one entry of the known-dongle table: a recognized
// RTL2832U vendor/product ID pair and the human-readable name of the
// board it identifies. This table is consulted only during enumeration;
// it has no bearing on device behavior.
type KnownDongle struct {
	VID, PID gousb.ID
	Name     string
}

// knownVIDPIDs lists the RTL2832U vendor/product ID pairs recognized by
// this driver, covering the reference dongle and its common rebrands.
var knownVIDPIDs = []KnownDongle{
	{0x0bda, 0x2832, "Generic RTL2832U"},
	{0x0bda, 0x2838, "Generic RTL2832U OEM"},
	{0x0413, 0x6680, "DigitalNow Quad DVB-T PCI-E card"},
	{0x0413, 0x6689, "Leadtek WinFast DTV Dongle mini D"},
	{0x185b, 0x0620, "Compro Videomate U620F"},
	{0x185b, 0x0650, "Compro Videomate U650F"},
	{0x0ccd, 0x00a9, "Terratec Cinergy T Stick Black"},
	{0x0ccd, 0x00b3, "Terratec NOXON DAB/DAB+ USB dongle"},
	{0x1f4d, 0xb803, "GTek T803"},
	{0x1f4d, 0xc803, "Lifeview LV5TDeluxe"},
}

// KnownDongles returns the known-dongle table used for enumeration. It is
// a copy; callers may not mutate the package's internal table through it.
func KnownDongles() []KnownDongle {
	out := make([]KnownDongle, len(knownVIDPIDs))
	copy(out, knownVIDPIDs)
	return out
}

// DongleName returns the human-readable name for a known VID:PID pair, or
// "" if the pair is not in the known-dongle table.
func DongleName(vid, pid gousb.ID) string {
	for _, kd := range knownVIDPIDs {
		if kd.VID == vid && kd.PID == pid {
			return kd.Name
		}
	}
	return ""
}

// ControlFn is implemented by a function that is responsible for
// run-time control after a Device has been opened. Using the provided
// rtl.Device, the device can be reconfigured, streamed, or queried as
// necessary.
//
// The function should implement some form of loop, sleep, or wait and
// not return until the device is no longer required. When the function
// returns, the Device and underlying USB handle will be closed and the
// session will end.
type ControlFn func(ctx context.Context, d *rtl.Device, usb *gousb.Device) error

// ConfigFn is implemented by a function that can take a Session and
// perform some configuration or return a non-nil error if a problem
// with the configuration is detected.
type ConfigFn func(o *Session) error

// Session is a type for storing/configuring a single session of access
// to an RTL2832U device. The members can be set directly or by calling
// NewSession with the desired options declared using the WithXYZ()
// functions that return a ConfigFn (e.g. WithSelector).
type Session struct {
	Selector DevSelectFn
	DevCfg   DevConfigFn
	Control  ControlFn
}

// NewSession creates a new Session and calls each given ConfigFn with it
// as the argument and then returns the configured Session. It returns a
// non-nil error immediately if any of the ConfigFn functions returns a
// non-nil error. It will call the ConfigFn functions in the order they
// are provided as arguments.
func NewSession(fns ...ConfigFn) (*Session, error) {
	opts := &Session{}
	for _, fn := range fns {
		if err := fn(opts); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// WithSelector creates a ConfigFn that configures the Session with a
// DevSelectFn that applies all of the provided DevFilterFn functions to
// filter out or reorder available devices. The DevSelectFn will then
// select, if any are available, the first device in the filtered list
// of devices.
func WithSelector(filters ...DevFilterFn) ConfigFn {
	return func(o *Session) error {
		if o.Selector != nil {
			return errors.New("select function already set")
		}
		o.Selector = func(devs []*gousb.DeviceDesc) *gousb.DeviceDesc {
			for _, filt := range filters {
				devs = filt(devs)
			}
			if len(devs) == 0 {
				return nil
			}
			return devs[0]
		}
		return nil
	}
}

// WithDeviceConfig creates a ConfigFn that configures the Session with a
// single DevConfigFn that applies all of the provided DevConfigFn
// functions in the order they are provided.
func WithDeviceConfig(fns ...DevConfigFn) ConfigFn {
	return func(o *Session) error {
		if o.DevCfg != nil {
			return errors.New("device config function already set")
		}
		o.DevCfg = func(ctx context.Context, d *rtl.Device) error {
			for _, fn := range fns {
				if err := fn(ctx, d); err != nil {
					return err
				}
			}
			return nil
		}
		return nil
	}
}

// WithControlLoop configures the provided function as the control loop.
// This function will be called after the Device is opened and
// configured. When the function returns, the Device will be closed and
// Run() will exit. A control loop function is not necessary. If a
// control loop function is not provided, Run will wait on the Context
// until it is canceled.
func WithControlLoop(fn ControlFn) ConfigFn {
	return func(o *Session) error {
		if o.Control != nil {
			return errors.New("control loop function already set")
		}
		o.Control = fn
		return nil
	}
}

// Run runs the configured Session. The provided Context is passed to the
// control loop function if one is provided. If no control loop has been
// provided, Run will wait on the ctx.Done() channel. Therefore, this
// function will block until an error is encountered, the control loop
// exits, and/or the Context is canceled.
func (s *Session) Run(ctx context.Context) error {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	// OpenDeviceWithVIDPID opens (at most) the first device matching each
	// known vendor/product pair; this is the enumeration shape gousb's
	// API demonstrates, rather than an unverified bulk-enumerate call.
	var opened []*gousb.Device
	for _, kp := range knownVIDPIDs {
		dev, err := usbCtx.OpenDeviceWithVIDPID(kp.VID, kp.PID)
		if err != nil {
			return fmt.Errorf("failed to probe USB VID:PID %v:%v: %w", kp.VID, kp.PID, err)
		}
		if dev != nil {
			opened = append(opened, dev)
		}
	}

	if len(opened) == 0 {
		return errors.New("no RTL2832U devices found")
	}

	var descList []*gousb.DeviceDesc
	byDesc := make(map[*gousb.DeviceDesc]*gousb.Device, len(opened))
	for _, dev := range opened {
		descList = append(descList, dev.Desc)
		byDesc[dev.Desc] = dev
	}

	chosenDesc := descList[0]
	if s.Selector != nil {
		chosenDesc = s.Selector(descList)
		if chosenDesc == nil {
			return errors.New("no matching devices selected")
		}
	}

	dev := byDesc[chosenDesc]
	for _, d := range opened {
		if d != dev {
			_ = d.Close()
		}
	}
	defer func() {
		if err := dev.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "device close failed: %v\n", err)
		}
	}()

	if _, err := dev.Config(1); err != nil {
		return fmt.Errorf("failed to set USB configuration: %w", err)
	}

	bus := rtl.NewRegBus(dev)
	rtlDev, err := rtl.Open(ctx, bus)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() {
		if err := rtlDev.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "device close failed: %v\n", err)
		}
	}()

	if s.DevCfg != nil {
		if err := s.DevCfg(ctx, rtlDev); err != nil {
			return err
		}
	}

	switch s.Control {
	case nil:
		<-ctx.Done()
		return ctx.Err()
	default:
		return s.Control(ctx, rtlDev, dev)
	}
}

// Run is a simplified wrapper around calling NewSession, checking for an
// error, and then calling Session.Run.
func Run(ctx context.Context, fns ...ConfigFn) error {
	s, err := NewSession(fns...)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
