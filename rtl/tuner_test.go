package rtl

import (
	"context"
	"testing"
)

// TestGetCenterFreqZeroOnFailedSet verifies that after a failed
// SetCenterFreq, GetCenterFreq returns 0. SetFreq's own failure path
// requires a bound tuner and register bus, but the "no tuner bound"
// guard in SetCenterFreq is itself a failure path and is reachable with
// a bare Device.
func TestGetCenterFreqZeroOnFailedSet(t *testing.T) {
	d := &Device{freq: 123_456_789}
	if err := d.SetCenterFreq(context.Background(), 100_000_000); err == nil {
		t.Fatal("expected error setting center freq with no tuner bound")
	}
	if got := d.GetCenterFreq(); got != 0 {
		t.Errorf("GetCenterFreq() after failed set = %d, want 0", got)
	}
}

func TestGetCenterFreqDefaultsToZero(t *testing.T) {
	d := &Device{}
	if got := d.GetCenterFreq(); got != 0 {
		t.Errorf("GetCenterFreq() on fresh Device = %d, want 0", got)
	}
}
