package rtl

import (
	"context"
	"fmt"
)

const (
	minRateLowHz  = 225_001
	maxRateLowHz  = 300_000
	minRateHighHz = 900_001
	maxRateHighHz = 3_200_000
)

// ValidSampleRate reports whether rate falls in one of the two accepted
// bands: (225kHz, 300kHz] or (900kHz, 3.2MHz].
func ValidSampleRate(rate uint32) bool {
	switch {
	case rate >= minRateLowHz && rate <= maxRateLowHz:
		return true
	case rate >= minRateHighHz && rate <= maxRateHighHz:
		return true
	default:
		return false
	}
}

// demod register addresses used by the baseband engine. The exact
// register map of the RTL2832 demodulator is public information (the
// chip has no vendor secrecy around it, unlike the tuner PLL/gain
// sequences, which are treated as external collaborators); they are
// reproduced here only to the extent needed to drive the baseband
// bring-up and retune state machine.
const (
	regDemodSoftReset = 0x01
	regDDCFreqHi      = 0x19
	regDDCFreqMid     = 0x1a
	regDDCFreqLo      = 0x1b
	regIFFreqHi       = 0x19
	regIFFreqMid      = 0x1a
	regIFFreqLo       = 0x1b
	regSampleCorrHi   = 0x3f
	regSampleCorrLo   = 0x40
	regRatioB0        = 0x9f
	regRatioB1        = 0xa0
	regRatioB2        = 0xa1
	regRatioB3        = 0xa2
)

// initBaseband runs the ordered demodulator bring-up sequence: endpoint
// setup, soft reset, spectrum/IF defaults, FIR taps, then SDR-mode and
// AGC-loop register defaults.
func (d *Device) initBaseband(ctx context.Context) error {
	if err := d.bus.WriteReg(ctx, BlockUSB, usbEpAMaxPktAddr, 0x0200, 2); err != nil {
		return err
	}
	if err := d.bus.WriteReg(ctx, BlockUSB, usbEpAConfAddr, 0x1002, 2); err != nil {
		return err
	}

	if err := d.bus.DemodWriteReg(ctx, 1, regDemodSoftReset, 0x14, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regDemodSoftReset, 0x10, 1); err != nil {
		return err
	}

	if err := d.bus.DemodWriteReg(ctx, 1, 0x15, 0x00, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regDDCFreqHi, 0x00, 1); err != nil {
		return err
	}

	if err := d.writeFIRTaps(ctx, d.firTaps); err != nil {
		return err
	}

	if err := d.bus.DemodWriteReg(ctx, 0, 0x19, 0x05, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, 0x17, 0x11, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, 0x06, 0x80, 1); err != nil {
		return err
	}

	if err := d.bus.DemodWriteReg(ctx, 0, 0x19, 0x05, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, 0x13, 0xa0, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, 0x16, 0x00, 1); err != nil {
		return err
	}

	return nil
}

// WriteFIRTaps validates and pushes a new FIR coefficient set to the
// demodulator, encoding it to the packed 20-byte wire form.
func (d *Device) WriteFIRTaps(ctx context.Context, taps FIRTaps) error {
	if err := d.setFIRTaps(ctx, taps); err != nil {
		return err
	}
	return nil
}

func (d *Device) setFIRTaps(ctx context.Context, taps FIRTaps) error {
	if err := d.writeFIRTaps(ctx, taps); err != nil {
		return err
	}
	d.mu.Lock()
	d.firTaps = taps
	d.mu.Unlock()
	return nil
}

func (d *Device) writeFIRTaps(ctx context.Context, taps FIRTaps) error {
	enc, err := EncodeFIRTaps(taps)
	if err != nil {
		return err
	}
	for i, b := range enc {
		if err := d.bus.DemodWriteReg(ctx, 1, uint16(0x1c+i), uint16(b), 1); err != nil {
			return err
		}
	}
	return nil
}

// EncodeFIRTaps serializes the 16 logical taps into 20 wire bytes:
// taps 0..7 as signed 8-bit each; taps 8..15 as packed signed 12-bit
// pairs. Out-of-range values are rejected.
func EncodeFIRTaps(taps FIRTaps) ([]byte, error) {
	for i := 0; i < 8; i++ {
		if taps[i] < -128 || taps[i] > 127 {
			return nil, fmt.Errorf("rtl: fir tap %d out of range [-128,127]: %d", i, taps[i])
		}
	}
	for i := 8; i < 16; i++ {
		if taps[i] < -2048 || taps[i] > 2047 {
			return nil, fmt.Errorf("rtl: fir tap %d out of range [-2048,2047]: %d", i, taps[i])
		}
	}

	out := make([]byte, 20)
	for i := 0; i < 8; i++ {
		out[i] = byte(taps[i])
	}
	for i := 0; i < 4; i++ {
		v0 := uint16(taps[8+2*i]) & 0x0fff
		v1 := uint16(taps[8+2*i+1]) & 0x0fff
		o := 8 + i*3
		out[o] = byte(v0 >> 4)
		out[o+1] = byte((v0<<4)&0xf0) | byte((v1>>8)&0x0f)
		out[o+2] = byte(v1 & 0xff)
	}
	return out, nil
}

// DecodeFIRTaps is the inverse of EncodeFIRTaps; it exists primarily to
// support the encode/decode round-trip property tested against it.
func DecodeFIRTaps(enc []byte) (FIRTaps, error) {
	var taps FIRTaps
	if len(enc) != 20 {
		return taps, fmt.Errorf("rtl: fir decode: want 20 bytes, got %d", len(enc))
	}
	for i := 0; i < 8; i++ {
		taps[i] = int16(int8(enc[i]))
	}
	for i := 0; i < 4; i++ {
		o := 8 + i*3
		v0 := uint16(enc[o])<<4 | uint16(enc[o+1])>>4
		v1 := uint16(enc[o+1]&0x0f)<<8 | uint16(enc[o+2])
		taps[8+2*i] = signExtend12(v0)
		taps[8+2*i+1] = signExtend12(v1)
	}
	return taps, nil
}

func signExtend12(v uint16) int16 {
	v &= 0x0fff
	if v&0x0800 != 0 {
		return int16(v) - 4096
	}
	return int16(v)
}

// SetIFFreq programs the demodulator's IF mixer to translate the given
// IF frequency to baseband:
//
//	raw = -(fIF * 2^22 / rtlXtal)
func (d *Device) SetIFFreq(ctx context.Context, ifHz int64) error {
	d.mu.Lock()
	xtal := int64(correctedXtal(d.rtlXtalHz, d.corrPPM))
	d.mu.Unlock()

	raw := -(ifHz * (1 << 22) / xtal)
	raw &= 0xffffff

	if err := d.bus.DemodWriteReg(ctx, 1, regIFFreqHi, uint16((raw>>16)&0x3f), 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regIFFreqMid, uint16((raw>>8)&0xff), 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regIFFreqLo, uint16(raw&0xff), 1); err != nil {
		return err
	}
	return nil
}

// correctedXtal applies the ppm correction to the nominal crystal
// frequency.
func correctedXtal(xtal uint32, ppm int32) int64 {
	return int64(xtal) + int64(xtal)*int64(ppm)/1_000_000
}

// SetSampleFreqCorrection programs the ppm-based sample-frequency
// correction registers:
//
//	offs = -(ppm * 2^24 / 10^6)
func (d *Device) SetSampleFreqCorrection(ctx context.Context, ppm int32) error {
	offs := -(int64(ppm) * (1 << 24) / 1_000_000)
	offs &= 0xffff
	if err := d.bus.DemodWriteReg(ctx, 1, regSampleCorrLo, uint16(offs&0xff), 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regSampleCorrHi, uint16((offs>>8)&0xff), 1); err != nil {
		return err
	}
	d.mu.Lock()
	d.corrPPM = ppm
	d.mu.Unlock()
	return nil
}

// ComputeRatio computes the raw and "real" resampler ratio for a given
// crystal and target sample rate:
//
//	ratio = (rtlXtal * 2^22 / sampRate) & 0x0FFFFFFC
//
// the real ratio additionally propagates bit 27 up to bit 28 when set.
func ComputeRatio(rtlXtalHz uint32, sampRateHz uint32) (raw uint32, real uint32) {
	ratio := uint64(rtlXtalHz) * (1 << 22) / uint64(sampRateHz)
	ratio &= 0x0ffffffc
	raw = uint32(ratio)
	real = raw
	if real&(1<<27) != 0 {
		real |= 1 << 28
	} else {
		real &^= 1 << 28
	}
	return raw, real
}

// AchievedSampleRate computes the true rate the resampler produces for a
// given real ratio, bounded by the resampler's quantization step.
func AchievedSampleRate(rtlXtalHz uint32, realRatio uint32) uint32 {
	return uint32(uint64(rtlXtalHz) * (1 << 22) / uint64(realRatio))
}

// SetSampleRate validates, programs, and records the achieved sample
// rate. It rejects rates outside the accepted bands without mutating any
// state.
func (d *Device) SetSampleRate(ctx context.Context, rate uint32) error {
	if !ValidSampleRate(rate) {
		return fmt.Errorf("rtl: invalid sample rate %d Hz", rate)
	}

	d.mu.Lock()
	xtal := d.rtlXtalHz
	d.mu.Unlock()

	_, real := ComputeRatio(xtal, rate)
	achieved := AchievedSampleRate(xtal, real)

	if err := d.bus.DemodWriteReg(ctx, 1, regRatioB3, uint16(real>>16), 2); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regRatioB1, uint16(real&0xffff), 2); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regDemodSoftReset, 0x04, 1); err != nil {
		return err
	}
	if err := d.bus.DemodWriteReg(ctx, 1, regDemodSoftReset, 0x00, 1); err != nil {
		return err
	}

	d.mu.Lock()
	d.rate = achieved
	d.mu.Unlock()

	d.reactivateAGC(agcReset)
	return nil
}

// SetDirectSampling enables or disables direct-sampling mode. When
// enabled, the tuner is put into standby, zero-IF is disabled, and only
// the selected ADC input is routed. Disabling reverses the sequence and
// re-initializes the tuner.
func (d *Device) SetDirectSampling(ctx context.Context, mode DirectSamplingMode, thresholdHz uint32) error {
	d.mu.Lock()
	tuner := d.tuner
	d.mu.Unlock()

	switch mode {
	case DirectSamplingOff:
		if err := d.bus.DemodWriteReg(ctx, 0, 0x19, 0x05, 1); err != nil {
			return err
		}
		if tuner != nil {
			if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
				return err
			}
			err := tuner.Init(ctx, d.bus)
			repErr := d.bus.SetI2CRepeater(ctx, false)
			if err != nil {
				return err
			}
			if repErr != nil {
				return repErr
			}
		}
	default:
		if tuner != nil {
			if err := d.bus.SetI2CRepeater(ctx, true); err != nil {
				return err
			}
			// Tuner standby has no dedicated dispatch method; Exit is the
			// closest analog and is safe to call repeatedly because tuner
			// implementations are idempotent.
			err := tuner.Exit(ctx, d.bus)
			repErr := d.bus.SetI2CRepeater(ctx, false)
			if err != nil {
				return err
			}
			if repErr != nil {
				return repErr
			}
		}
		swap := mode == DirectSamplingQ || mode == DirectSamplingQBelowThreshold
		v := uint16(0x01)
		if swap {
			v = 0x02
		}
		if err := d.bus.DemodWriteReg(ctx, 0, 0x19, v, 1); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.directMode = mode
	d.directThreshold = thresholdHz
	d.mu.Unlock()
	return nil
}

// OffsetTuningOffset computes offs_freq = rate/2 * 1.7.
func OffsetTuningOffset(rate uint32) uint32 {
	return uint32(float64(rate) / 2 * 1.7)
}

// SetOffsetTuning enables or disables offset tuning. It is rejected when
// the bound tuner is R820T/R828D or while direct sampling is active.
func (d *Device) SetOffsetTuning(ctx context.Context, enable bool) error {
	d.mu.Lock()
	tt := d.tunerType
	direct := d.directMode != DirectSamplingOff
	rate := d.rate
	freq := d.freq
	d.mu.Unlock()

	if tt == TunerR820T || tt == TunerR828D {
		return fmt.Errorf("rtl: offset tuning not supported on %v", tt)
	}
	if direct {
		return fmt.Errorf("rtl: offset tuning not valid while direct sampling is enabled")
	}

	var offs uint32
	if enable {
		offs = OffsetTuningOffset(rate)
	}

	if err := d.SetIFFreq(ctx, int64(offs)); err != nil {
		return err
	}

	d.mu.Lock()
	d.offsetTuning = enable
	d.offsFreqHz = offs
	d.mu.Unlock()

	if freq != 0 {
		return d.SetCenterFreq(ctx, freq)
	}
	return nil
}
