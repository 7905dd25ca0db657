
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ehelgesen1/librtlsdr/rtl"
)

// ParseFrequency is a helper function to parse a frequency value
// specified as a command-line argument. For convenience, valid
// arguments can have a suffix of k, K, m, M, g, or G to indicate
// the value is in kHz, MHz, or GHz respectively (e.g. 1.42G). Any
// text before such a suffix must represent a valid floating point
// value as parsed by strconv.ParseFloat(). The return value is the
// parsed frequency in Hz.
func ParseFrequency(arg string) (float64, error) {
	var mult float64 = 1
	arg = strings.ToLower(arg)
	switch {
	case arg == "":
		// do nothing
	case strings.HasSuffix(arg, "k"):
		mult = 1000
		arg = strings.TrimSuffix(arg, "k")
	case strings.HasSuffix(arg, "m"):
		mult = 1000 * 1000
		arg = strings.TrimSuffix(arg, "m")
	case strings.HasSuffix(arg, "g"):
		mult = 1000 * 1000 * 1000
		arg = strings.TrimSuffix(arg, "g")
	}
	freq, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, err
	}
	return freq * mult, nil
}

// minTuneFreqHz and maxTuneFreqHz bound the tuner frequencies reachable
// by any of the dispatched tuner types (E4000, FC0012, FC0013, FC2580,
// R820T/R828D); R820T covers the widest span of the set, 24MHz to
// 1.766GHz, and the others all fall within it.
const (
	minTuneFreqHz = 24e6
	maxTuneFreqHz = 1.766e9
)

// ParseTuneFrequency is a wrapper around ParseFrequency that also
// guarantees the result is a tune frequency reachable by a bound
// RTL2832U tuner. It returns an error if the frequency is below 24MHz
// or above 1.766GHz; a specific bound tuner's actual SetFreq may still
// reject a frequency within this range.
func ParseTuneFrequency(arg string) (float64, error) {
	freq, err := ParseFrequency(arg)
	if err != nil {
		return 0, err
	}
	if freq < minTuneFreqHz || freq > maxTuneFreqHz {
		return 0, fmt.Errorf("invalid tune frequency; got %f Hz, want %gHz<=freq<=%gHz", freq, minTuneFreqHz, maxTuneFreqHz)
	}
	return freq, nil
}

// ParseSampleRate is a wrapper around ParseFrequency that also
// guarantees the result falls in one of the RTL2832U's two accepted
// sample-rate bands, the same check rtl.ValidSampleRate applies when
// the rate is actually programmed into the baseband engine.
func ParseSampleRate(arg string) (float64, error) {
	freq, err := ParseFrequency(arg)
	if err != nil {
		return 0, err
	}
	if freq < 0 || freq > float64(^uint32(0)) || !rtl.ValidSampleRate(uint32(freq)) {
		return 0, fmt.Errorf("invalid sample rate; got %f Hz, want (225kHz,300kHz] or (900kHz,3.2MHz]", freq)
	}
	return freq, nil
}
