package rtl

import (
	"context"
	"fmt"
)

// Tuner is the abstract tuner dispatch interface. Not every tuner
// variant implements every operation; absent operations are modeled as
// explicit no-op bodies on that variant's type rather than a nil
// function pointer.
//
// Register programming bodies (PLL synthesis, gain tables, IF filter
// taps) are external collaborators and are not reproduced; each
// tuner's methods here perform the I2C framing, dispatch, and state
// bookkeeping required and stop short of the analog register
// sequences.
type Tuner interface {
	Init(ctx context.Context, bus *RegBus) error
	Exit(ctx context.Context, bus *RegBus) error
	SetFreq(ctx context.Context, bus *RegBus, freqHz uint32) error
	// SetBW applies the requested bandwidth and reports back both the
	// bandwidth actually applied and the intermediate frequency the tuner
	// settled on. The R82xx variant reports its fixed 3.57MHz IF, which
	// the caller combines with if_band_center to reprogram the demod; the
	// other variants report an IF of 0.
	SetBW(ctx context.Context, bus *RegBus, bwHz uint32, apply bool) (appliedBwHz uint32, ifHz uint32, err error)
	SetBWCenter(ctx context.Context, bus *RegBus, offsetHz int32) error
	SetGain(ctx context.Context, bus *RegBus, tenthsDB int32) error
	SetIFGain(ctx context.Context, bus *RegBus, stage int, tenthsDB int32) error
	SetGainMode(ctx context.Context, bus *RegBus, manual bool) error
	SetI2CRegister(ctx context.Context, bus *RegBus, reg, data, mask uint8) error
	SetI2COverride(ctx context.Context, bus *RegBus, reg, data, mask uint8) error
	GetI2CRegister(ctx context.Context, bus *RegBus, reg uint8) (byte, error)
	// GainTable returns the discrete gain steps, in tenths of a dB, that
	// the soft-AGC classifier chooses among, ordered low to high.
	GainTable() []int32
}

// Known tuner I2C check addresses and values, used only for probing.
// These are public figures describing how to identify a chip on the I2C
// bus, not the proprietary analog register sequences.
const (
	i2cAddrE4000 = 0x64
	i2cAddrFC0013 = 0x63
	i2cAddrR820T  = 0x34
	i2cAddrR828D  = 0x74
	i2cAddrFC2580 = 0x56
	i2cAddrFC0012 = 0x63

	checkRegE4000  = 0x02
	checkValE4000  = 0x40
	checkRegFC0013 = 0x00
	checkValFC0013 = 0xa1
	checkRegR820x  = 0x00
	checkValR820x  = 0x69
	checkRegFC2580 = 0x01
	checkValFC2580 = 0x56
	checkMaskFC2580 = 0x7f
	checkRegFC0012 = 0x00
	checkValFC0012 = 0xa1

	resetGPIOPin = 4
)

// ProbeTuner implements the tuner probe order: with the I2C repeater
// enabled, try E4000, FC0013, R820T, R828D check registers in
// order; if none match, reset the tuner via GPIO pin 4 and probe FC2580
// (masked) then FC0012. Unknown tuners cause the caller to fall back to
// direct-sampling mode.
func ProbeTuner(ctx context.Context, bus *RegBus) (TunerType, Tuner, error) {
	if err := bus.SetI2CRepeater(ctx, true); err != nil {
		return TunerUnknown, nil, err
	}
	defer func() { _ = bus.SetI2CRepeater(ctx, false) }()

	if v, err := bus.I2CReadReg(ctx, i2cAddrE4000, checkRegE4000); err == nil && v == checkValE4000 {
		return TunerE4000, &e4000Tuner{}, nil
	}
	if v, err := bus.I2CReadReg(ctx, i2cAddrFC0013, checkRegFC0013); err == nil && v == checkValFC0013 {
		return TunerFC0013, &fc0013Tuner{}, nil
	}
	if v, err := bus.I2CReadReg(ctx, i2cAddrR820T, checkRegR820x); err == nil && v == checkValR820x {
		return TunerR820T, &r82xxTuner{variant: TunerR820T}, nil
	}
	if v, err := bus.I2CReadReg(ctx, i2cAddrR828D, checkRegR820x); err == nil && v == checkValR820x {
		return TunerR828D, &r82xxTuner{variant: TunerR828D}, nil
	}

	if err := bus.SetGPIOOutput(ctx, resetGPIOPin); err != nil {
		return TunerUnknown, nil, err
	}
	if err := bus.SetGPIOBit(ctx, resetGPIOPin, false); err != nil {
		return TunerUnknown, nil, err
	}
	if err := bus.SetGPIOBit(ctx, resetGPIOPin, true); err != nil {
		return TunerUnknown, nil, err
	}

	if v, err := bus.I2CReadReg(ctx, i2cAddrFC2580, checkRegFC2580); err == nil && v&checkMaskFC2580 == checkValFC2580&checkMaskFC2580 {
		return TunerFC2580, &fc2580Tuner{}, nil
	}
	if v, err := bus.I2CReadReg(ctx, i2cAddrFC0012, checkRegFC0012); err == nil && v == checkValFC0012 {
		return TunerFC0012, &fc0012Tuner{}, nil
	}

	return TunerUnknown, noopTuner{}, nil
}

// SetCenterFreq retunes the bound tuner, bracketing the I2C call with
// the repeater gate, and records the applied frequency. On failure,
// GetCenterFreq subsequently returns 0.
func (d *Device) SetCenterFreq(ctx context.Context, freqHz uint32) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()

	if tuner == nil {
		d.mu.Lock()
		d.freq = 0
		d.mu.Unlock()
		return fmt.Errorf("rtl: no tuner bound")
	}

	tune := freqHz
	d.mu.Lock()
	if d.offsetTuning {
		tune = freqHz - d.offsFreqHz
	}
	d.mu.Unlock()

	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetFreq(ctx, d.bus, tune)
	repErr := d.bus.SetI2CRepeater(ctx, false)

	if err == nil {
		err = repErr
	}
	d.mu.Lock()
	if err != nil {
		d.freq = 0
		d.mu.Unlock()
		return err
	}
	d.freq = freqHz
	d.mu.Unlock()

	d.reactivateAGC(agcReset)
	return nil
}

// SetTunerBandwidth applies the requested bandwidth to the bound tuner.
// For R820T/R828D, the tuner reports back the intermediate frequency its
// filter settled on; that reported IF is combined with if_band_center and
// reprogrammed into the demod IF, and d.bw is recorded as the applied
// bandwidth (not the IF the tuner returned alongside it).
func (d *Device) SetTunerBandwidth(ctx context.Context, bwHz uint32) error {
	d.mu.Lock()
	tuner := d.tuner
	tt := d.tunerType
	ifCenter := d.ifBandCenter
	d.mu.Unlock()

	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}

	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	applied, tunerIF, err := tuner.SetBW(ctx, d.bus, bwHz, true)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	if repErr != nil {
		return repErr
	}

	d.mu.Lock()
	d.bw = applied
	d.mu.Unlock()

	if tt == TunerR820T || tt == TunerR828D {
		if err := d.SetIFFreq(ctx, int64(tunerIF)+int64(ifCenter)); err != nil {
			return err
		}
	}
	d.reactivateAGC(agcReset)
	return nil
}

// SetBWCenter reprograms if_band_center and, on R820T/R828D, the demod
// IF that derives from it.
func (d *Device) SetBWCenter(ctx context.Context, offsetHz int32) error {
	d.mu.Lock()
	tuner := d.tuner
	tt := d.tunerType
	d.mu.Unlock()

	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}

	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetBWCenter(ctx, d.bus, offsetHz)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	if repErr != nil {
		return repErr
	}

	d.mu.Lock()
	d.ifBandCenter = offsetHz
	d.mu.Unlock()

	if tt == TunerR820T || tt == TunerR828D {
		return d.SetIFFreq(ctx, int64(offsetHz))
	}
	return nil
}

// SetTunerGain applies a manual gain value in tenths of a dB to the
// bound tuner, bracketing the call with the I2C repeater gate. It does
// not touch the demod's RF-AGC loop bit for any tuner type, R820T/R828D
// included.
func (d *Device) SetTunerGain(ctx context.Context, tenthsDB int32) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}
	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetGain(ctx, d.bus, tenthsDB)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	return repErr
}

// SetTunerGainMode switches the bound tuner between automatic and
// manual gain control.
func (d *Device) SetTunerGainMode(ctx context.Context, manual bool) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}
	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetGainMode(ctx, d.bus, manual)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	return repErr
}

// SetTunerIFGain applies a manual IF-stage gain value in tenths of a dB.
func (d *Device) SetTunerIFGain(ctx context.Context, stage int, tenthsDB int32) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}
	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetIFGain(ctx, d.bus, stage, tenthsDB)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	return repErr
}

// GainTable returns the bound tuner's discrete gain steps, or nil if no
// tuner is bound.
func (d *Device) GainTable() []int32 {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return nil
	}
	return tuner.GainTable()
}

// noopTuner is bound when probing fails to identify any known tuner; the
// device falls back to direct sampling mode and every tuner operation is
// a documented no-op.
type noopTuner struct{}

func (noopTuner) Init(context.Context, *RegBus) error    { return nil }
func (noopTuner) Exit(context.Context, *RegBus) error    { return nil }
func (noopTuner) SetFreq(context.Context, *RegBus, uint32) error { return nil }
func (noopTuner) SetBW(context.Context, *RegBus, uint32, bool) (uint32, uint32, error) {
	return 0, 0, nil
}
func (noopTuner) SetBWCenter(context.Context, *RegBus, int32) error { return nil }
func (noopTuner) SetGain(context.Context, *RegBus, int32) error     { return nil }
func (noopTuner) SetIFGain(context.Context, *RegBus, int, int32) error {
	return nil
}
func (noopTuner) SetGainMode(context.Context, *RegBus, bool) error { return nil }
func (noopTuner) SetI2CRegister(context.Context, *RegBus, uint8, uint8, uint8) error {
	return nil
}
func (noopTuner) SetI2COverride(context.Context, *RegBus, uint8, uint8, uint8) error {
	return nil
}
func (noopTuner) GetI2CRegister(context.Context, *RegBus, uint8) (byte, error) {
	return 0, fmt.Errorf("rtl: no tuner bound")
}
func (noopTuner) GainTable() []int32 { return nil }
