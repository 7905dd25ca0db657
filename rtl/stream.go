package rtl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gousb"
)

// StreamCallback receives one completed transfer's I/Q payload. buf is
// only valid for the duration of the call; implementations that need to
// retain the data must copy it.
type StreamCallback func(buf []byte)

// maxXferErrors bounds how many consecutive transfer failures the
// engine tolerates before declaring the device lost.
const maxXferErrors = 8

// streamEndpointAddr is the bulk IN endpoint the RTL2832U exposes for
// sample streaming.
const streamEndpointAddr = 0x81

// ReadAsync starts the asynchronous bulk streaming engine: it claims
// the bulk IN endpoint, allocates bufNum read slots of bufLen bytes
// (DefaultBufLen replaces a bufLen that is zero or not a multiple of
// 512; DefaultBufNum replaces a bufNum of zero), and hands each completed
// buffer that the soft-AGC classifier lets through to cb, on the calling
// goroutine, until ctx is canceled or CancelAsyncRead is called. It
// returns once streaming has stopped.
//
// The legal state sequence is Inactive -> Running -> Canceling ->
// Inactive; calling ReadAsync while already Running is rejected.
func (d *Device) ReadAsync(ctx context.Context, dev *gousb.Device, cb StreamCallback, bufLen, bufNum int) error {
	d.streamMu.Lock()
	if d.streamState != StreamInactive {
		d.streamMu.Unlock()
		return fmt.Errorf("rtl: stream already active")
	}
	d.streamState = StreamRunning
	d.streamMu.Unlock()
	atomic.StoreUint32(&d.xferErrors, 0)

	if bufLen <= 0 || bufLen%512 != 0 {
		bufLen = DefaultBufLen
	}
	if bufNum <= 0 {
		bufNum = DefaultBufNum
	}

	cfg, err := dev.Config(1)
	if err != nil {
		d.setStreamState(StreamInactive)
		return fmt.Errorf("rtl: claim config: %w", err)
	}
	defer cfg.Close()

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		d.setStreamState(StreamInactive)
		return fmt.Errorf("rtl: claim interface: %w", err)
	}
	defer intf.Close()

	ep, err := intf.InEndpoint(streamEndpointAddr)
	if err != nil {
		d.setStreamState(StreamInactive)
		return fmt.Errorf("rtl: claim endpoint: %w", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)

	d.streamMu.Lock()
	d.streamCancel = cancel
	d.streamMu.Unlock()

	defer func() {
		cancel()
		d.setStreamState(StreamInactive)
	}()

	// bufNum transfer-sized buffers are rotated round-robin so a pending
	// ReadContext never aliases a buffer still in use by cb.
	bufs := make([][]byte, bufNum)
	for i := range bufs {
		bufs[i] = make([]byte, bufLen)
	}

	errStreak := 0
	agc := d.EnsureAGC()

	for i := 0; ; i = (i + 1) % bufNum {
		if cancelCtx.Err() != nil {
			d.streamMu.Lock()
			d.streamState = StreamCanceling
			d.streamMu.Unlock()
			return nil
		}

		n, err := ep.ReadContext(cancelCtx, bufs[i])
		if err != nil {
			if cancelCtx.Err() != nil {
				d.streamMu.Lock()
				d.streamState = StreamCanceling
				d.streamMu.Unlock()
				return nil
			}
			errStreak++
			atomic.AddUint32(&d.xferErrors, 1)
			if errStreak >= maxXferErrors {
				d.markLost()
				return fmt.Errorf("rtl: stream read: %w", err)
			}
			continue
		}
		errStreak = 0

		payload := bufs[i][:n]
		if agc.Classify(payload) {
			cb(payload)
		}
	}
}

func (d *Device) setStreamState(s StreamState) {
	d.streamMu.Lock()
	d.streamState = s
	d.streamMu.Unlock()
}

// CancelAsyncRead requests that an in-progress ReadAsync stop. It is
// safe to call from any goroutine, including the StreamCallback itself.
// It returns an error unless the stream is currently Running.
func (d *Device) CancelAsyncRead() error {
	d.streamMu.Lock()
	state := d.streamState
	cancel := d.streamCancel
	d.streamMu.Unlock()

	if state != StreamRunning {
		return fmt.Errorf("rtl: cancel async read: stream not running (state=%v)", state)
	}
	if cancel != nil {
		cancel()
	}

	// Give ReadAsync's loop a bounded window to observe cancellation and
	// settle back to Inactive before returning, matching the legal state
	// sequence Running -> Canceling -> Inactive.
	return d.awaitStreamInactive(2 * time.Second)
}

// StreamState reports the current state of the async stream engine.
func (d *Device) StreamState() StreamState {
	d.streamMu.Lock()
	defer d.streamMu.Unlock()
	return d.streamState
}

// XferErrors returns the running count of transfer errors observed by
// the stream engine since the last ReadAsync started.
func (d *Device) XferErrors() uint32 {
	return atomic.LoadUint32(&d.xferErrors)
}

// bufferPool is a small free list of reusable fixed-size buffers. It is
// unexported and no streaming path uses it: ReadAsync rotates its own
// buffer set, and rtltcp's producer allocates a fresh copy of every
// payload it queues.
type bufferPool struct {
	mu   sync.Mutex
	free [][]byte
	size int
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{size: size}
}

func (p *bufferPool) get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return make([]byte, p.size)
	}
	b := p.free[n-1]
	p.free = p.free[:n-1]
	return b
}

func (p *bufferPool) put(b []byte) {
	if cap(b) < p.size {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, b[:p.size])
	p.mu.Unlock()
}
