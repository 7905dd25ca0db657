package rtl

import (
	"context"
	"sync"
)

// AGCMode selects how the software AGC classifier drives the tuner gain
// table.
type AGCMode int

const (
	// AGCOff disables the software AGC entirely; gain is whatever the
	// caller last set manually.
	AGCOff AGCMode = iota
	// AGCOnChange re-evaluates gain only when the classifier is
	// explicitly poked (sample rate, bandwidth, or frequency change).
	AGCOnChange
	// AGCAutoAttenuate continuously attenuates to chase oversteer but
	// never raises gain back up on its own.
	AGCAutoAttenuate
	// AGCAuto continuously adjusts gain in both directions.
	AGCAuto
)

// agcSubState is the internal progress state of the soft-AGC worker,
// independent of AGCMode.
type agcSubState int

const (
	agcSubOff agcSubState = iota
	agcSubOn
	agcSubResetContinuing
	agcSubReset
	agcSubInit
)

// agcReset requests that the next classifier pass treat the stream as
// freshly retuned: discard any in-flight histogram and restart from
// agcSubInit. It is passed to reactivateAGC after any operation that
// invalidates the current sample statistics (retune, rate change,
// bandwidth change).
const agcReset = true
const agcNoReset = false

// agcHistBits is the number of most-significant magnitude bits the
// oversteer classifier histograms into 2^agcHistBits buckets.
const agcHistBits = 4

// agcScanMs and agcDeadMs are, respectively, how many milliseconds of
// samples the classifier accumulates into one oversteer histogram, and
// how many milliseconds it then ignores after every gain change before
// accumulating the next one. Both are converted to a sample count against
// the device's current rate, recomputed whenever the rate changes.
const (
	agcScanMs = 100
	agcDeadMs = 5
)

// fallbackAGCRateHz is the sample rate assumed when deriving scan/dead
// sample counts before any rate has actually been configured.
const fallbackAGCRateHz = 2_048_000

// agcDeadInfinite marks deadLeft as "wait indefinitely": set whenever a
// gain change has been requested and not yet cleared by a worker
// goroutine. Processed buffers are fully discarded while it holds so the
// classifier never accumulates samples taken mid gain-change.
const agcDeadInfinite = ^uint64(0)

// softAGC is the software automatic gain control worker. It owns no I/O
// of its own; gain changes are pushed through Device.SetTunerGain on a
// dedicated goroutine so that the (slow) I2C gain write never blocks the
// streaming hot path.
type softAGC struct {
	dev *Device

	mu      sync.Mutex
	mode    AGCMode
	sub     agcSubState
	gainIdx int
	gainTbl []int32

	rateHz      uint32
	scanSamples uint64
	deadSamples uint64

	deadLeft uint64
	hist     [1 << agcHistBits]uint64
	total    uint64

	changeCh chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// newSoftAGC constructs a worker bound to dev and starts its gain-write
// goroutine. The classifier itself is driven by Classify, called from
// the stream engine's completion callback.
func newSoftAGC(dev *Device) *softAGC {
	a := &softAGC{
		dev:      dev,
		sub:      agcSubOff,
		changeCh: make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
	}
	go a.run()
	return a
}

// SetMode switches the AGC mode. Switching into any mode other than
// AGCOff reactivates the classifier from agcSubInit.
func (a *softAGC) SetMode(mode AGCMode) {
	a.mu.Lock()
	a.mode = mode
	if mode == AGCOff {
		a.sub = agcSubOff
	} else {
		a.sub = agcSubInit
		a.resetHistLocked()
	}
	a.mu.Unlock()
}

func (a *softAGC) Mode() AGCMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// reactivateAGC is called by the baseband and tuner layers after any
// operation that invalidates the classifier's running statistics. reset
// is agcReset to force a full histogram restart, or agcNoReset to leave
// the sub-state alone (reserved for future callers that only need to
// confirm the worker is alive).
func (d *Device) reactivateAGC(reset bool) {
	d.mu.Lock()
	agc := d.agc
	d.mu.Unlock()
	if agc == nil {
		return
	}
	if reset {
		agc.mu.Lock()
		if agc.mode != AGCOff {
			agc.sub = agcSubInit
			agc.resetHistLocked()
		}
		agc.mu.Unlock()
	}
}

func (a *softAGC) resetHistLocked() {
	for i := range a.hist {
		a.hist[i] = 0
	}
	a.total = 0
}

// refreshWindowSizes recomputes scanSamples/deadSamples from the bound
// device's current sample rate, once per rate change.
func (a *softAGC) refreshWindowSizes() {
	rate := fallbackAGCRateHz
	if a.dev != nil {
		if r := a.dev.GetSampleRate(); r != 0 {
			rate = int(r)
		}
	}
	if uint32(rate) == a.rateHz && a.scanSamples != 0 {
		return
	}
	a.rateHz = uint32(rate)
	a.scanSamples = uint64(rate) * agcScanMs / 1000
	a.deadSamples = uint64(rate) * agcDeadMs / 1000
	if a.scanSamples == 0 {
		a.scanSamples = 1
	}
}

// requestGain sets gainIdx to idx, arms the infinite dead wait until the
// worker goroutine confirms the write, and signals the worker.
func (a *softAGC) requestGain(idx int) {
	a.gainIdx = idx
	a.deadLeft = agcDeadInfinite
	select {
	case a.changeCh <- struct{}{}:
	default:
	}
}

// accumulate folds iq's magnitude-bucketed samples into the running
// histogram. Each byte is bias-128 interleaved I/Q, per spec; the top
// agcHistBits magnitude bits select the bucket.
func (a *softAGC) accumulate(iq []byte) {
	for _, b := range iq {
		v := int(b) - 128
		if v < 0 {
			v = -v
		}
		bucket := v >> (7 - agcHistBits)
		if bucket >= len(a.hist) {
			bucket = len(a.hist) - 1
		}
		a.hist[bucket]++
		a.total++
	}
}

// oversteered runs the three-tier cumulative-distribution oversteer
// test: any of 64*distrib[15] >= N, 16*distrib[12] >= N, 4*distrib[8] >=
// N, where distrib[k] is the cumulative count of samples in buckets k
// and above and N is the total sample count in the current window.
func (a *softAGC) oversteered() bool {
	if a.total == 0 {
		return false
	}
	var distrib [1 << agcHistBits]uint64
	var cum uint64
	for k := len(a.hist) - 1; k >= 0; k-- {
		cum += a.hist[k]
		distrib[k] = cum
	}
	n := a.total
	if 64*distrib[15] >= n {
		return true
	}
	if 16*distrib[12] >= n {
		return true
	}
	if 4*distrib[8] >= n {
		return true
	}
	return false
}

// Classify is invoked by the stream engine on every completed transfer's
// I/Q payload. It advances the soft-AGC state machine and reports
// whether the stream engine should hand this buffer to the user
// callback: buffers consumed while settling after a retune or a gain
// change are discarded, not delivered. Classify never blocks and never
// touches the I2C bus directly; gain changes are handed to the worker
// goroutine via requestGain.
func (a *softAGC) Classify(iq []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == AGCOff || a.sub == agcSubOff {
		return true
	}

	if a.sub == agcSubInit {
		a.sub = agcSubReset
		return false
	}

	if a.sub == agcSubReset {
		if len(a.gainTbl) <= 1 {
			a.mode = AGCOff
			a.sub = agcSubOff
			return true
		}
		a.refreshWindowSizes()
		a.resetHistLocked()
		a.sub = agcSubResetContinuing
		a.requestGain(len(a.gainTbl) - 1)
		return false
	}

	if a.deadLeft == agcDeadInfinite {
		return false
	}
	if a.deadLeft > 0 {
		n := uint64(len(iq))
		if n > a.deadLeft {
			n = a.deadLeft
		}
		a.deadLeft -= n
		iq = iq[n:]
	}
	if len(iq) == 0 {
		return a.sub == agcSubOn
	}

	a.accumulate(iq)
	if a.total < a.scanSamples {
		return a.sub == agcSubOn
	}

	oversteer := a.oversteered()

	if a.sub == agcSubResetContinuing {
		if oversteer && a.gainIdx > 0 {
			a.resetHistLocked()
			a.requestGain(a.gainIdx - 1)
			return false
		}
		if a.gainIdx == 0 || a.mode == AGCOnChange || a.mode == AGCOff {
			a.sub = agcSubOff
		} else {
			a.sub = agcSubOn
		}
		a.resetHistLocked()
		return true
	}

	switch {
	case oversteer && a.gainIdx > 0:
		a.resetHistLocked()
		a.requestGain(a.gainIdx - 1)
	case !oversteer && a.mode == AGCAuto && a.gainIdx < len(a.gainTbl)-1:
		a.resetHistLocked()
		a.requestGain(a.gainIdx + 1)
	default:
		a.resetHistLocked()
	}
	if a.mode == AGCOnChange {
		a.sub = agcSubOff
	}
	return true
}

// run is the dedicated worker goroutine that performs the (slow) I2C
// gain write requested by Classify, off the streaming hot path. Once the
// write completes it clears the infinite dead wait Classify armed in
// requestGain, starting the finite dead_samples countdown.
func (a *softAGC) run() {
	defer close(a.doneCh)
	for range a.changeCh {
		a.mu.Lock()
		if a.gainIdx < 0 || a.gainIdx >= len(a.gainTbl) {
			a.mu.Unlock()
			continue
		}
		tenths := a.gainTbl[a.gainIdx]
		a.mu.Unlock()

		_ = a.dev.SetTunerGain(context.Background(), tenths)

		a.mu.Lock()
		a.deadLeft = a.deadSamples
		a.mu.Unlock()
	}
}

func (a *softAGC) stop() {
	a.stopOnce.Do(func() {
		close(a.changeCh)
	})
	<-a.doneCh
}

// EnsureAGC lazily constructs the soft-AGC worker bound to d, seeding
// its gain table from the bound tuner, and returns it.
func (d *Device) EnsureAGC() *softAGC {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.agc == nil {
		d.agc = newSoftAGC(d)
		if d.tuner != nil {
			d.agc.gainTbl = d.tuner.GainTable()
		}
	}
	return d.agc
}

// SetAGCMode configures the software AGC mode, lazily starting the
// worker if needed.
func (d *Device) SetAGCMode(mode AGCMode) {
	d.EnsureAGC().SetMode(mode)
}

// AGCMode returns the current software AGC mode, or AGCOff if the
// worker has not yet been started.
func (d *Device) AGCMode() AGCMode {
	d.mu.Lock()
	agc := d.agc
	d.mu.Unlock()
	if agc == nil {
		return AGCOff
	}
	return agc.Mode()
}
