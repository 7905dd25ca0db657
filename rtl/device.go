package rtl

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultRtlXtalHz is the nominal RTL2832U crystal frequency.
	DefaultRtlXtalHz = 28_800_000

	// xtalTolHz is the tolerance of rtl_xtal around DefaultRtlXtalHz.
	// Nothing checks against it: SetRTLXtalFreq stores any value.
	xtalTolHz = 1000

	// DefaultBufLen is the transfer buffer length substituted whenever a
	// caller-supplied buffer length is zero or not a multiple of 512.
	DefaultBufLen = 16 * 32 * 512

	// DefaultBufNum is the number of transfer descriptors allocated by
	// the async stream engine when the caller does not override it.
	DefaultBufNum = 15

	// DefaultQueueBound is the default bound on the TCP producer/consumer
	// queue (see helpers/queue).
	DefaultQueueBound = 500
)

// TunerType identifies which tuner chip dispatch table is bound to a
// Device.
type TunerType int

const (
	TunerUnknown TunerType = iota
	TunerE4000
	TunerFC0012
	TunerFC0013
	TunerFC2580
	TunerR820T
	TunerR828D
)

func (t TunerType) String() string {
	switch t {
	case TunerE4000:
		return "E4000"
	case TunerFC0012:
		return "FC0012"
	case TunerFC0013:
		return "FC0013"
	case TunerFC2580:
		return "FC2580"
	case TunerR820T:
		return "R820T"
	case TunerR828D:
		return "R828D"
	default:
		return "Unknown"
	}
}

// DirectSamplingMode selects how the ADC inputs are routed when the
// tuner's own mixer is bypassed.
type DirectSamplingMode int

const (
	DirectSamplingOff DirectSamplingMode = iota
	DirectSamplingIQ
	DirectSamplingI
	DirectSamplingQ
	DirectSamplingIBelowThreshold
	DirectSamplingQBelowThreshold
)

// StreamState is the legal state sequence of the async stream engine:
// Inactive -> Running -> Canceling -> Inactive.
type StreamState int

const (
	StreamInactive StreamState = iota
	StreamRunning
	StreamCanceling
)

func (s StreamState) String() string {
	switch s {
	case StreamRunning:
		return "Running"
	case StreamCanceling:
		return "Canceling"
	default:
		return "Inactive"
	}
}

// FIRTaps holds the 16 logical FIR coefficients of the symmetric 32-tap
// baseband filter. Taps[0:8] are 8-bit signed; Taps[8:16] are 12-bit
// signed.
type FIRTaps [16]int16

// DefaultFIRTaps mirrors the conventional RTL2832U default filter used
// when no caller-supplied taps are set.
var DefaultFIRTaps = FIRTaps{
	-54, -36, -41, -40, -32, -14, 14, 53,
	101, 156, 215, 273, 327, 372, 404, 421,
}

// Device is the central entity of the driver: one open RTL2832U dongle
// with a bound tuner, current frequency/rate/gain state, and (lazily)
// allocated streaming and soft-AGC sub-state. A Device is mutated only by
// the goroutine that currently holds it; its exported methods guard the
// fields they touch with internal mutexes.
type Device struct {
	mu sync.Mutex

	bus *RegBus

	rtlXtalHz   uint32
	tunerXtalHz uint32
	corrPPM     int32

	rate          uint32
	freq          uint32
	bw            uint32
	ifBandCenter  int32
	offsFreqHz    uint32
	offsetTuning  bool

	tunerType TunerType
	tuner     Tuner

	directMode      DirectSamplingMode
	directThreshold uint32

	firTaps FIRTaps

	streamMu     sync.Mutex
	streamState  StreamState
	streamCancel context.CancelFunc
	xferErrors   uint32
	devLost      bool

	agc *softAGC
}

// Open binds the given register bus (already opened against a USB
// device) to a new Device, probes and initializes the tuner, and brings
// the baseband engine up with default parameters. The caller retains
// ownership of closing the underlying USB handle via Close.
func Open(ctx context.Context, bus *RegBus) (*Device, error) {
	d := &Device{
		bus:         bus,
		rtlXtalHz:   DefaultRtlXtalHz,
		tunerXtalHz: DefaultRtlXtalHz,
		firTaps:     DefaultFIRTaps,
		streamState: StreamInactive,
	}

	if err := d.initBaseband(ctx); err != nil {
		return nil, fmt.Errorf("rtl: baseband init: %w", err)
	}

	tt, tuner, err := ProbeTuner(ctx, bus)
	if err != nil {
		return nil, fmt.Errorf("rtl: tuner probe: %w", err)
	}
	d.tunerType = tt
	d.tuner = tuner

	if tt == TunerUnknown {
		// Fallback to direct sampling per spec.
		if err := d.SetDirectSampling(ctx, DirectSamplingIQ, 0); err != nil {
			return nil, fmt.Errorf("rtl: direct sampling fallback: %w", err)
		}
		return d, nil
	}

	if err := bus.SetI2CRepeater(ctx, true); err != nil {
		return nil, err
	}
	err = tuner.Init(ctx, bus)
	repErr := bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("rtl: tuner init: %w", err)
	}
	if repErr != nil {
		return nil, repErr
	}

	return d, nil
}

// Close tears down any active stream, stops the soft-AGC worker if
// running, and releases the tuner.
func (d *Device) Close(ctx context.Context) error {
	d.streamMu.Lock()
	state := d.streamState
	d.streamMu.Unlock()
	switch state {
	case StreamRunning:
		if err := d.CancelAsyncRead(); err != nil {
			return err
		}
	case StreamCanceling:
		if err := d.awaitStreamInactive(2 * time.Second); err != nil {
			return err
		}
	}
	if d.agc != nil {
		d.agc.stop()
	}
	if d.tuner != nil {
		if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
			return err
		}
		err := d.tuner.Exit(ctx, d.bus)
		repErr := d.bus.SetI2CRepeater(ctx, false)
		if err != nil {
			return err
		}
		return repErr
	}
	return nil
}

// TunerType returns the tuner variant bound at Open time.
func (d *Device) TunerType() TunerType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tunerType
}

// DeviceLost reports whether the async stream engine has declared the
// device lost after too many consecutive transfer failures.
func (d *Device) DeviceLost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devLost
}

// awaitStreamInactive polls for the stream engine to settle to
// StreamInactive, bounded by timeout. Used by Close when a cancellation
// already in progress (StreamCanceling) needs to be waited out rather
// than re-requested.
func (d *Device) awaitStreamInactive(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		d.streamMu.Lock()
		s := d.streamState
		d.streamMu.Unlock()
		if s == StreamInactive {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("rtl: close: timed out waiting for stream to stop")
}

func (d *Device) markLost() {
	d.mu.Lock()
	d.devLost = true
	d.mu.Unlock()
}

// GetCenterFreq returns the last successfully applied tuner center
// frequency, or 0 if the last SetCenterFreq call failed (invariant #3).
func (d *Device) GetCenterFreq() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freq
}

// GetSampleRate returns the last successfully applied sample rate.
func (d *Device) GetSampleRate() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}
