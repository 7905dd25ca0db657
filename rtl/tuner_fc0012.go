package rtl

import "context"

// fc0012Tuner dispatches to a Fitipower FC0012 tuner.
type fc0012Tuner struct {
	gainManual bool
}

func (t *fc0012Tuner) Init(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *fc0012Tuner) Exit(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *fc0012Tuner) SetFreq(ctx context.Context, bus *RegBus, freqHz uint32) error {
	return nil
}

func (t *fc0012Tuner) SetBW(ctx context.Context, bus *RegBus, bwHz uint32, apply bool) (uint32, uint32, error) {
	// FC0012 supports a single fixed 6MHz bandwidth.
	return 6_000_000, 0, nil
}

func (t *fc0012Tuner) SetBWCenter(ctx context.Context, bus *RegBus, offsetHz int32) error {
	return nil
}

func (t *fc0012Tuner) SetGain(ctx context.Context, bus *RegBus, tenthsDB int32) error {
	return nil
}

func (t *fc0012Tuner) SetIFGain(ctx context.Context, bus *RegBus, stage int, tenthsDB int32) error {
	return nil
}

func (t *fc0012Tuner) SetGainMode(ctx context.Context, bus *RegBus, manual bool) error {
	t.gainManual = manual
	return nil
}

func (t *fc0012Tuner) SetI2CRegister(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *fc0012Tuner) SetI2COverride(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *fc0012Tuner) GetI2CRegister(ctx context.Context, bus *RegBus, reg uint8) (byte, error) {
	return bus.I2CReadReg(ctx, i2cAddrFC0012, reg)
}

// GainTable returns FC0012's documented LNA gain steps, in tenths of a
// dB.
func (t *fc0012Tuner) GainTable() []int32 {
	return []int32{-99, -40, 71, 179, 192}
}
