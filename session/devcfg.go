package session

import (
	"context"
	"fmt"

	"github.com/ehelgesen1/librtlsdr/rtl"
)

// DevConfigFn is a function type for configuring an rtl.Device. At the
// point that a DevConfigFn is called, the device has already been
// opened and its tuner probed. The function returns a non-nil error if
// an incompatible or impossible configuration is detected or requested.
type DevConfigFn func(ctx context.Context, d *rtl.Device) error

// NoopDevConfig is a device configuration function that returns nil
// without checking or modifying the device. It can be used as a noop or
// placeholder for another DevConfigFn function.
func NoopDevConfig(ctx context.Context, d *rtl.Device) error {
	return nil
}

// WithSampleRate creates a function that sets the device's sample rate.
func WithSampleRate(rate uint32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetSampleRate(ctx, rate)
	}
}

// WithCenterFreq creates a function that retunes the device's center
// frequency.
func WithCenterFreq(freqHz uint32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetCenterFreq(ctx, freqHz)
	}
}

// WithFreqCorrection creates a function that sets the crystal frequency
// correction, in parts per million.
func WithFreqCorrection(ppm int32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetSampleFreqCorrection(ctx, ppm)
	}
}

// WithTunerBandwidth creates a function that sets the tuner's analog
// filter bandwidth.
func WithTunerBandwidth(bwHz uint32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetTunerBandwidth(ctx, bwHz)
	}
}

// WithTunerGain creates a function that sets the tuner to manual gain
// mode and applies the given gain, in tenths of a dB.
func WithTunerGain(tenthsDB int32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		if err := d.SetTunerGainMode(ctx, true); err != nil {
			return err
		}
		return d.SetTunerGain(ctx, tenthsDB)
	}
}

// WithAutoGain creates a function that switches the tuner to automatic
// gain control.
func WithAutoGain() DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetTunerGainMode(ctx, false)
	}
}

// WithAGCMode creates a function that configures the software AGC mode.
func WithAGCMode(mode rtl.AGCMode) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		d.SetAGCMode(mode)
		return nil
	}
}

// WithDirectSampling creates a function that configures direct sampling
// mode and its below-threshold frequency, if applicable.
func WithDirectSampling(mode rtl.DirectSamplingMode, thresholdHz uint32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetDirectSampling(ctx, mode, thresholdHz)
	}
}

// WithOffsetTuning creates a function that enables or disables offset
// tuning.
func WithOffsetTuning(enable bool) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetOffsetTuning(ctx, enable)
	}
}

// WithFIRTaps creates a function that pushes a custom FIR coefficient
// set to the baseband engine.
func WithFIRTaps(taps rtl.FIRTaps) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.WriteFIRTaps(ctx, taps)
	}
}

// WithIFGain creates a function that sets a manual IF-stage gain, in
// tenths of a dB, on tuners that expose separate IF stages.
func WithIFGain(stage int, tenthsDB int32) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		return d.SetTunerIFGain(ctx, stage, tenthsDB)
	}
}

// RequireTuner creates a function that fails configuration unless the
// probed tuner matches one of the given types. Useful for features that
// only exist on the R820T/R828D family (rtludp's register-27 controls,
// for instance).
func RequireTuner(types ...rtl.TunerType) DevConfigFn {
	return func(ctx context.Context, d *rtl.Device) error {
		got := d.TunerType()
		for _, t := range types {
			if got == t {
				return nil
			}
		}
		return fmt.Errorf("session: tuner %v not in required set %v", got, types)
	}
}
