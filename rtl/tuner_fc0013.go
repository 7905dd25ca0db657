package rtl

import "context"

// fc0013Tuner dispatches to a Fitipower FC0013 tuner.
type fc0013Tuner struct {
	gainManual bool
}

func (t *fc0013Tuner) Init(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *fc0013Tuner) Exit(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *fc0013Tuner) SetFreq(ctx context.Context, bus *RegBus, freqHz uint32) error {
	return nil
}

func (t *fc0013Tuner) SetBW(ctx context.Context, bus *RegBus, bwHz uint32, apply bool) (uint32, uint32, error) {
	return 6_000_000, 0, nil
}

func (t *fc0013Tuner) SetBWCenter(ctx context.Context, bus *RegBus, offsetHz int32) error {
	return nil
}

func (t *fc0013Tuner) SetGain(ctx context.Context, bus *RegBus, tenthsDB int32) error {
	return nil
}

func (t *fc0013Tuner) SetIFGain(ctx context.Context, bus *RegBus, stage int, tenthsDB int32) error {
	return nil
}

func (t *fc0013Tuner) SetGainMode(ctx context.Context, bus *RegBus, manual bool) error {
	t.gainManual = manual
	return nil
}

func (t *fc0013Tuner) SetI2CRegister(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *fc0013Tuner) SetI2COverride(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *fc0013Tuner) GetI2CRegister(ctx context.Context, bus *RegBus, reg uint8) (byte, error) {
	return bus.I2CReadReg(ctx, i2cAddrFC0013, reg)
}

// GainTable returns FC0013's documented LNA gain steps, in tenths of a
// dB.
func (t *fc0013Tuner) GainTable() []int32 {
	return []int32{
		-99, -73, -65, -63, -60, -58, -54, 58,
		61, 63, 65, 67, 68, 70, 71, 179,
		181, 182, 184, 186, 188, 191, 197,
	}
}
