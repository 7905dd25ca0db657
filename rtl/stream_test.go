package rtl

import "testing"

// TestReadAsyncRejectsWhenNotInactive verifies the legal state sequence
// the stream engine enforces: starting a stream is refused unless the
// engine is Inactive.
func TestReadAsyncRejectsWhenNotInactive(t *testing.T) {
	d := &Device{streamState: StreamRunning}
	err := d.ReadAsync(nil, nil, func([]byte) {}, 0, 0)
	if err == nil {
		t.Fatal("expected error starting a stream that is already Running")
	}
	if d.StreamState() != StreamRunning {
		t.Errorf("state changed to %v, want unchanged Running", d.StreamState())
	}
}

// TestCancelAsyncReadRejectsWhenNotRunning exercises the CancelAsyncRead
// side of the same invariant: it is an error unless the stream is
// Running.
func TestCancelAsyncReadRejectsWhenNotRunning(t *testing.T) {
	cases := []StreamState{StreamInactive, StreamCanceling}
	for _, s := range cases {
		d := &Device{streamState: s}
		if err := d.CancelAsyncRead(); err == nil {
			t.Errorf("CancelAsyncRead from state %v: expected error, got nil", s)
		}
	}
}

func TestStreamStateString(t *testing.T) {
	cases := map[StreamState]string{
		StreamInactive:  "Inactive",
		StreamRunning:   "Running",
		StreamCanceling: "Canceling",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("StreamState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestBufferPoolReuse(t *testing.T) {
	p := newBufferPool(512)
	b := p.get()
	if len(b) != 512 {
		t.Fatalf("get() len = %d, want 512", len(b))
	}
	p.put(b)
	b2 := p.get()
	if len(b2) != 512 {
		t.Fatalf("reused get() len = %d, want 512", len(b2))
	}
}

func TestBufferPoolRejectsUndersizedReturn(t *testing.T) {
	p := newBufferPool(512)
	small := make([]byte, 64)
	p.put(small)
	if len(p.free) != 0 {
		t.Errorf("undersized buffer was pooled: free list has %d entries, want 0", len(p.free))
	}
}
