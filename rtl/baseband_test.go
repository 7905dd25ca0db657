package rtl

import "testing"

func TestValidSampleRate(t *testing.T) {
	cases := []struct {
		rate uint32
		want bool
	}{
		{225_000, false},
		{225_001, true},
		{300_000, true},
		{300_001, false},
		{900_000, false},
		{900_001, true},
		{2_048_000, true},
		{3_200_000, true},
		{3_200_001, false},
		{500_000, false},
	}
	for _, c := range cases {
		if got := ValidSampleRate(c.rate); got != c.want {
			t.Errorf("ValidSampleRate(%d) = %v, want %v", c.rate, got, c.want)
		}
	}
}

// TestFIRTapsRoundTrip verifies that encoding then decoding a valid tap
// set yields the original taps.
func TestFIRTapsRoundTrip(t *testing.T) {
	taps := DefaultFIRTaps
	enc, err := EncodeFIRTaps(taps)
	if err != nil {
		t.Fatalf("EncodeFIRTaps: %v", err)
	}
	if len(enc) != 20 {
		t.Fatalf("EncodeFIRTaps: want 20 bytes, got %d", len(enc))
	}
	dec, err := DecodeFIRTaps(enc)
	if err != nil {
		t.Fatalf("DecodeFIRTaps: %v", err)
	}
	if dec != taps {
		t.Errorf("round trip mismatch: got %v, want %v", dec, taps)
	}
}

func TestFIRTapsRoundTripExtremes(t *testing.T) {
	taps := FIRTaps{
		-128, 127, -128, 127, -128, 127, -128, 127,
		-2048, 2047, -2048, 2047, -2048, 2047, -2048, 2047,
	}
	enc, err := EncodeFIRTaps(taps)
	if err != nil {
		t.Fatalf("EncodeFIRTaps: %v", err)
	}
	dec, err := DecodeFIRTaps(enc)
	if err != nil {
		t.Fatalf("DecodeFIRTaps: %v", err)
	}
	if dec != taps {
		t.Errorf("round trip mismatch: got %v, want %v", dec, taps)
	}
}

func TestFIRTapsOutOfRangeRejected(t *testing.T) {
	low := DefaultFIRTaps
	low[0] = -129
	if _, err := EncodeFIRTaps(low); err == nil {
		t.Error("expected error for tap 0 out of [-128,127]")
	}
	high := DefaultFIRTaps
	high[7] = 128
	if _, err := EncodeFIRTaps(high); err == nil {
		t.Error("expected error for tap 7 out of [-128,127]")
	}
	mid := DefaultFIRTaps
	mid[8] = -2049
	if _, err := EncodeFIRTaps(mid); err == nil {
		t.Error("expected error for tap 8 out of [-2048,2047]")
	}
	top := DefaultFIRTaps
	top[15] = 2048
	if _, err := EncodeFIRTaps(top); err == nil {
		t.Error("expected error for tap 15 out of [-2048,2047]")
	}
}

func TestDecodeFIRTapsWrongLength(t *testing.T) {
	if _, err := DecodeFIRTaps(make([]byte, 19)); err == nil {
		t.Error("expected error for wrong-length encoded taps")
	}
}

// TestSampleRateQuantization verifies that the achieved rate never
// differs from the requested rate by more than the resampler's
// quantization step, rtlXtal*2^22/2^32.
func TestSampleRateQuantization(t *testing.T) {
	rates := []uint32{225_001, 250_000, 300_000, 900_001, 1_000_000, 2_048_000, 2_400_000, 3_200_000}
	xtal := uint32(DefaultRtlXtalHz)
	maxErr := int64(uint64(xtal) * (1 << 22) / (1 << 32))
	if maxErr < 1 {
		maxErr = 1
	}
	for _, r := range rates {
		_, real := ComputeRatio(xtal, r)
		achieved := AchievedSampleRate(xtal, real)
		diff := int64(achieved) - int64(r)
		if diff < 0 {
			diff = -diff
		}
		if diff > maxErr {
			t.Errorf("rate %d: |achieved %d - requested| = %d, want <= %d", r, achieved, diff, maxErr)
		}
	}
}

func TestOffsetTuningOffset(t *testing.T) {
	got := OffsetTuningOffset(2_048_000)
	want := uint32(float64(2_048_000) / 2 * 1.7)
	if got != want {
		t.Errorf("OffsetTuningOffset(2048000) = %d, want %d", got, want)
	}
}
