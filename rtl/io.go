package rtl

import (
	"context"
	"fmt"
)

// biasTeeGPIOPin is the GPIO pin conventionally wired to the bias-tee
// power switch on RTL2832U dongles that expose one.
const biasTeeGPIOPin = 0

// SetBiasTee drives the bias-tee GPIO pin high or low.
func (d *Device) SetBiasTee(ctx context.Context, enable bool) error {
	if err := d.bus.SetGPIOOutput(ctx, biasTeeGPIOPin); err != nil {
		return err
	}
	return d.bus.SetGPIOBit(ctx, biasTeeGPIOPin, enable)
}

// SetRTLXtalFreq overrides the nominal RTL2832U crystal frequency used
// by all subsequent IF/rate/correction calculations. The value is stored
// as given; it is not checked against the xtalTolHz tolerance.
func (d *Device) SetRTLXtalFreq(hz uint32) {
	d.mu.Lock()
	d.rtlXtalHz = hz
	d.mu.Unlock()
}

// SetTunerXtalFreq overrides the nominal tuner crystal frequency.
func (d *Device) SetTunerXtalFreq(hz uint32) {
	d.mu.Lock()
	d.tunerXtalHz = hz
	d.mu.Unlock()
}

// SetTunerI2CRegister passes a masked register write to the bound tuner's
// SetI2CRegister, bracketed by the I2C repeater gate. None of the tuner
// types in this package writes to the chip in SetI2CRegister, so the
// tuner's registers are left unchanged.
func (d *Device) SetTunerI2CRegister(ctx context.Context, reg, data, mask uint8) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}
	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetI2CRegister(ctx, d.bus, reg, data, mask)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	return repErr
}

// SetTunerI2COverride passes a masked register override to the bound
// tuner's SetI2COverride, bracketed by the I2C repeater gate. None of the
// tuner types in this package writes to the chip or records the override
// there, so nothing survives a re-initialization.
func (d *Device) SetTunerI2COverride(ctx context.Context, reg, data, mask uint8) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return fmt.Errorf("rtl: no tuner bound")
	}
	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return err
	}
	err := tuner.SetI2COverride(ctx, d.bus, reg, data, mask)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return err
	}
	return repErr
}

// GetTunerI2CRegister reads a tuner I2C register.
func (d *Device) GetTunerI2CRegister(ctx context.Context, reg uint8) (byte, error) {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return 0, fmt.Errorf("rtl: no tuner bound")
	}
	if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
		return 0, err
	}
	v, err := tuner.GetI2CRegister(ctx, d.bus, reg)
	repErr := d.bus.SetI2CRepeater(ctx, false)
	if err != nil {
		return 0, err
	}
	if repErr != nil {
		return 0, repErr
	}
	return v, nil
}

// SetGPIOOutput configures a GPIO pin as an output.
func (d *Device) SetGPIOOutput(ctx context.Context, pin uint8) error {
	return d.bus.SetGPIOOutput(ctx, pin)
}

// SetGPIOBit drives a GPIO pin high or low.
func (d *Device) SetGPIOBit(ctx context.Context, pin uint8, bit bool) error {
	return d.bus.SetGPIOBit(ctx, pin, bit)
}

// PLLLocked performs a lightweight liveness probe of the tuner's I2C
// bus by reading its register 0 (the probe check register for FC0012,
// FC0013, and R82xx; E4000 and FC2580 are probed at other registers);
// it does not decode a true PLL
// lock-detect bit (the per-tuner analog register sequences that would
// expose one are out of scope) but is sufficient to detect a wedged or
// disconnected tuner.
func (d *Device) PLLLocked(ctx context.Context) (bool, error) {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()
	if tuner == nil {
		return false, fmt.Errorf("rtl: no tuner bound")
	}
	_, err := d.GetTunerI2CRegister(ctx, 0)
	return err == nil, err
}
