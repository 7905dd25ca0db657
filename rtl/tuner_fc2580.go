package rtl

import "context"

// fc2580Tuner dispatches to a FCI FC2580 tuner.
type fc2580Tuner struct {
	gainManual bool
}

func (t *fc2580Tuner) Init(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *fc2580Tuner) Exit(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *fc2580Tuner) SetFreq(ctx context.Context, bus *RegBus, freqHz uint32) error {
	return nil
}

func (t *fc2580Tuner) SetBW(ctx context.Context, bus *RegBus, bwHz uint32, apply bool) (uint32, uint32, error) {
	return bwHz, 0, nil
}

func (t *fc2580Tuner) SetBWCenter(ctx context.Context, bus *RegBus, offsetHz int32) error {
	return nil
}

func (t *fc2580Tuner) SetGain(ctx context.Context, bus *RegBus, tenthsDB int32) error {
	return nil
}

func (t *fc2580Tuner) SetIFGain(ctx context.Context, bus *RegBus, stage int, tenthsDB int32) error {
	return nil
}

func (t *fc2580Tuner) SetGainMode(ctx context.Context, bus *RegBus, manual bool) error {
	t.gainManual = manual
	return nil
}

func (t *fc2580Tuner) SetI2CRegister(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *fc2580Tuner) SetI2COverride(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *fc2580Tuner) GetI2CRegister(ctx context.Context, bus *RegBus, reg uint8) (byte, error) {
	return bus.I2CReadReg(ctx, i2cAddrFC2580, reg)
}

// GainTable is empty: FC2580 exposes only automatic gain control in this
// driver.
func (t *fc2580Tuner) GainTable() []int32 {
	return nil
}
