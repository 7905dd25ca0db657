package rtl

import (
	"testing"
	"time"
)

// overSteeredBuffer builds a buffer where frac of the samples have
// magnitude at the extreme (bias 128, so byte 255 has magnitude 127).
func overSteeredBuffer(n int, frac float64) []byte {
	buf := make([]byte, n)
	hot := int(float64(n) * frac)
	for i := 0; i < n; i++ {
		if i < hot {
			buf[i] = 255
		} else {
			buf[i] = 128
		}
	}
	return buf
}

// quietBuffer builds a buffer with every sample at the zero-magnitude
// bias, never tripping the oversteer test.
func quietBuffer(n int) []byte {
	return overSteeredBuffer(n, 0)
}

// waitGainSettled blocks until the worker goroutine has cleared the
// infinite dead-wait armed by the most recent requestGain, i.e. until
// the commanded gain write has actually been applied.
func waitGainSettled(t *testing.T, a *softAGC) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		a.mu.Lock()
		settled := a.deadLeft != agcDeadInfinite
		a.mu.Unlock()
		if settled {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for AGC worker to apply requested gain")
}

// TestAGCClassifyResetsToTopOfGainTableBeforeSettling drives the soft-AGC
// state machine from construction through SetMode(AGCAuto) and verifies
// the real production path: the first two Classify calls walk
// agcSubInit -> agcSubReset -> agcSubResetContinuing, and the reset step
// commands the gain table's top (highest-gain) entry before anything
// is ever delivered to the caller.
func TestAGCClassifyResetsToTopOfGainTableBeforeSettling(t *testing.T) {
	gainTbl := []int32{0, 100, 200, 300, 400}
	dev := &Device{rate: 20000}
	a := newSoftAGC(dev)
	defer a.stop()
	a.gainTbl = gainTbl
	a.SetMode(AGCAuto)

	if deliver := a.Classify(quietBuffer(8)); deliver {
		t.Fatal("Classify delivered during agcSubInit, want discarded")
	}
	if a.sub != agcSubReset {
		t.Fatalf("sub after first Classify = %v, want agcSubReset", a.sub)
	}

	if deliver := a.Classify(quietBuffer(8)); deliver {
		t.Fatal("Classify delivered during the agcSubReset step, want discarded")
	}
	if a.sub != agcSubResetContinuing {
		t.Fatalf("sub after reset step = %v, want agcSubResetContinuing", a.sub)
	}
	if want := len(gainTbl) - 1; a.gainIdx != want {
		t.Fatalf("gainIdx after reset step = %d, want top of table (%d)", a.gainIdx, want)
	}
	if a.scanSamples == 0 || a.deadSamples == 0 {
		t.Fatalf("window sizes not derived from rate: scanSamples=%d deadSamples=%d", a.scanSamples, a.deadSamples)
	}
	if want := uint64(20000) * agcScanMs / 1000; a.scanSamples != want {
		t.Errorf("scanSamples = %d, want %d (rate*scan_ms/1000)", a.scanSamples, want)
	}
	if want := uint64(20000) * agcDeadMs / 1000; a.deadSamples != want {
		t.Errorf("deadSamples = %d, want %d (rate*dead_ms/1000)", a.deadSamples, want)
	}

	waitGainSettled(t, a)

	// A quiet window during agcSubResetContinuing finds no oversteer at
	// the top of the table, so the state machine settles into
	// agcSubOn without ever stepping the gain back down.
	settle := quietBuffer(int(a.deadSamples + a.scanSamples + 64))
	if deliver := a.Classify(settle); !deliver {
		t.Fatal("Classify did not deliver once the reset window settled")
	}
	if a.sub != agcSubOn {
		t.Fatalf("sub after settling = %v, want agcSubOn", a.sub)
	}
	if want := len(gainTbl) - 1; a.gainIdx != want {
		t.Fatalf("gainIdx drifted during a quiet settle: got %d, want unchanged top (%d)", a.gainIdx, want)
	}
}

// TestAGCClassifyDescendsOnOversteerFromSettledState continues from a
// fully settled agcSubOn state (reached via the real reset path, not a
// pre-seeded shortcut) and verifies that a sustained oversteer
// condition steps gain down one entry at a time and stops at index 0.
func TestAGCClassifyDescendsOnOversteerFromSettledState(t *testing.T) {
	gainTbl := []int32{0, 100, 200, 300, 400}
	dev := &Device{rate: 20000}
	a := newSoftAGC(dev)
	defer a.stop()
	a.gainTbl = gainTbl
	a.SetMode(AGCAuto)

	a.Classify(quietBuffer(8))
	a.Classify(quietBuffer(8))
	waitGainSettled(t, a)
	settle := quietBuffer(int(a.deadSamples + a.scanSamples + 64))
	a.Classify(settle)
	if a.sub != agcSubOn {
		t.Fatalf("setup: sub = %v, want agcSubOn before exercising descent", a.sub)
	}

	hot := overSteeredBuffer(int(a.deadSamples+a.scanSamples+64), 0.5)
	steps := 0
	for a.gainIdx > 0 && steps < len(gainTbl) {
		before := a.gainIdx
		if deliver := a.Classify(hot); !deliver {
			t.Fatal("agcSubOn oversteer step did not deliver the buffer")
		}
		if a.gainIdx != before-1 {
			t.Fatalf("gainIdx after oversteer step = %d, want %d", a.gainIdx, before-1)
		}
		waitGainSettled(t, a)
		steps++
	}
	if a.gainIdx != 0 {
		t.Fatalf("sustained oversteer did not bottom out: gainIdx = %d, want 0", a.gainIdx)
	}

	// One more oversteer window at the bottom of the table must not
	// drive the index negative.
	a.Classify(hot)
	if a.gainIdx != 0 {
		t.Errorf("gainIdx went negative-equivalent: got %d, want clamped at 0", a.gainIdx)
	}
}

// TestAGCOversteerCumulativeDistributionTiers exercises oversteered's
// three independent thresholds directly against the histogram, since
// each tier fires on a different, widely separated magnitude bucket
// and a single end-to-end Classify run cannot isolate them from one
// another.
func TestAGCOversteerCumulativeDistributionTiers(t *testing.T) {
	newHist := func() *softAGC {
		return &softAGC{gainTbl: []int32{0}}
	}

	t.Run("bucket 15 tier (64x)", func(t *testing.T) {
		a := newHist()
		a.total = 640
		a.hist[15] = 10 // 64*10 == 640 >= 640
		if !a.oversteered() {
			t.Error("64*distrib[15] >= N should trip oversteer")
		}
	})

	t.Run("bucket 12 tier (16x)", func(t *testing.T) {
		a := newHist()
		a.total = 1600
		a.hist[12] = 100 // cumulative from 12..15 == 100; 16*100 == 1600 >= 1600
		if !a.oversteered() {
			t.Error("16*distrib[12] >= N should trip oversteer")
		}
	})

	t.Run("bucket 8 tier (4x)", func(t *testing.T) {
		a := newHist()
		a.total = 4000
		a.hist[8] = 1000 // cumulative from 8..15 == 1000; 4*1000 == 4000 >= 4000
		if !a.oversteered() {
			t.Error("4*distrib[8] >= N should trip oversteer")
		}
	})

	t.Run("below all tiers", func(t *testing.T) {
		a := newHist()
		a.total = 100000
		a.hist[15] = 1
		a.hist[12] = 1
		a.hist[8] = 1
		if a.oversteered() {
			t.Error("sparse histogram should not trip any oversteer tier")
		}
	})

	t.Run("empty window never oversteers", func(t *testing.T) {
		a := newHist()
		if a.oversteered() {
			t.Error("oversteered() on an empty window must be false")
		}
	})
}

// TestAGCRefreshWindowSizesDerivesFromRate verifies scan_samples and
// dead_samples are computed from the bound device's sample rate rather
// than fixed batch counts, and are recomputed when the rate changes.
func TestAGCRefreshWindowSizesDerivesFromRate(t *testing.T) {
	dev := &Device{rate: 2_048_000}
	a := &softAGC{dev: dev, gainTbl: []int32{0}, changeCh: make(chan struct{}, 1)}

	a.refreshWindowSizes()
	if want := uint64(2_048_000) * agcScanMs / 1000; a.scanSamples != want {
		t.Errorf("scanSamples = %d, want %d", a.scanSamples, want)
	}
	if want := uint64(2_048_000) * agcDeadMs / 1000; a.deadSamples != want {
		t.Errorf("deadSamples = %d, want %d", a.deadSamples, want)
	}

	dev.rate = 250_000
	a.refreshWindowSizes()
	if want := uint64(250_000) * agcScanMs / 1000; a.scanSamples != want {
		t.Errorf("scanSamples after rate change = %d, want %d", a.scanSamples, want)
	}
	if want := uint64(250_000) * agcDeadMs / 1000; a.deadSamples != want {
		t.Errorf("deadSamples after rate change = %d, want %d", a.deadSamples, want)
	}
}

// TestAGCRefreshWindowSizesFallsBackWithNoRate verifies a never-tuned
// device still gets a usable (non-zero) window derived from the
// documented fallback rate.
func TestAGCRefreshWindowSizesFallsBackWithNoRate(t *testing.T) {
	dev := &Device{}
	a := &softAGC{dev: dev, gainTbl: []int32{0}, changeCh: make(chan struct{}, 1)}
	a.refreshWindowSizes()
	if a.scanSamples == 0 {
		t.Error("scanSamples is 0 with no rate configured, want fallback-derived value")
	}
	if want := uint64(fallbackAGCRateHz) * agcScanMs / 1000; a.scanSamples != want {
		t.Errorf("scanSamples = %d, want %d derived from fallback rate", a.scanSamples, want)
	}
}

func TestAGCClassifyOffModeNoop(t *testing.T) {
	dev := &Device{rate: 20000}
	a := newSoftAGC(dev)
	defer a.stop()
	a.gainTbl = []int32{0, 100, 200}
	a.SetMode(AGCOff)
	start := a.gainIdx
	buf := overSteeredBuffer(4096, 0.9)
	for i := 0; i < 8; i++ {
		if deliver := a.Classify(buf); !deliver {
			t.Error("AGCOff must always deliver")
		}
	}
	if a.gainIdx != start {
		t.Errorf("AGCOff classifier changed gain index: start=%d got=%d", start, a.gainIdx)
	}
}

// TestAGCSingleGainStepHasNothingToDescendTo verifies the reset step's
// early exit: a gain table with a single entry has nowhere to
// attenuate to, so the classifier disables itself instead of entering
// agcSubResetContinuing.
func TestAGCSingleGainStepHasNothingToDescendTo(t *testing.T) {
	dev := &Device{rate: 20000}
	a := newSoftAGC(dev)
	defer a.stop()
	a.gainTbl = []int32{150}
	a.SetMode(AGCAuto)

	a.Classify(quietBuffer(8)) // agcSubInit -> agcSubReset
	deliver := a.Classify(quietBuffer(8))
	if !deliver {
		t.Fatal("single-entry gain table should deliver immediately, having nothing to reset to")
	}
	if a.mode != AGCOff || a.sub != agcSubOff {
		t.Fatalf("mode/sub = %v/%v, want AGCOff/agcSubOff", a.mode, a.sub)
	}
	if a.gainIdx != 0 {
		t.Errorf("gainIdx = %d, want 0 (only entry)", a.gainIdx)
	}
}

// TestAGCAutoAttenuateNeverRaisesGain drives AGCAutoAttenuate through
// the real reset path to a settled agcSubOn state, then down to the
// bottom of the gain table under sustained oversteer, and finally
// verifies a quiet (non-oversteer) window never raises gain back up —
// unlike AGCAuto, which would.
func TestAGCAutoAttenuateNeverRaisesGain(t *testing.T) {
	gainTbl := []int32{0, 100, 200}
	dev := &Device{rate: 20000}
	a := newSoftAGC(dev)
	defer a.stop()
	a.gainTbl = gainTbl
	a.SetMode(AGCAutoAttenuate)

	a.Classify(quietBuffer(8))
	a.Classify(quietBuffer(8))
	waitGainSettled(t, a)
	a.Classify(quietBuffer(int(a.deadSamples + a.scanSamples + 64)))
	if a.sub != agcSubOn {
		t.Fatalf("setup: sub = %v, want agcSubOn before exercising attenuation", a.sub)
	}

	hot := overSteeredBuffer(int(a.scanSamples+64), 0.5)
	for a.gainIdx > 0 {
		a.Classify(hot)
		waitGainSettled(t, a)
	}
	if a.gainIdx != 0 {
		t.Fatalf("setup: gainIdx = %d, want 0 before exercising the no-raise guarantee", a.gainIdx)
	}

	quiet := quietBuffer(int(a.scanSamples + 64))
	for i := 0; i < 3; i++ {
		a.Classify(quiet)
	}
	if a.gainIdx != 0 {
		t.Errorf("AGCAutoAttenuate raised gain index to %d, want unchanged at 0", a.gainIdx)
	}
}

func TestAGCClassifyDeadWindowSkipsSamples(t *testing.T) {
	a := &softAGC{
		mode:     AGCAuto,
		sub:      agcSubOn,
		gainTbl:  []int32{0, 100, 200, 300},
		gainIdx:  1,
		deadLeft: 100,
		changeCh: make(chan struct{}, 1),
	}
	before := a.total
	a.Classify(overSteeredBuffer(64, 1.0))
	if a.total != before {
		t.Errorf("sample accumulated during dead window: total changed from %d to %d", before, a.total)
	}
	if a.deadLeft != 36 {
		t.Errorf("deadLeft = %d, want 36 (100 - 64 sample buffer fully absorbed by the dead window)", a.deadLeft)
	}
}
