
package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseNumber parses an integer argument as accepted by the UDP control
// protocol: an optional single-letter radix prefix (x for hex, b for
// binary, d for decimal; absent defaults to decimal), with ', ., and _
// permitted anywhere in the digit run as ignored separators (e.g.
// "x1a'2f", "b1010_0101", "1'000'000").
func ParseNumber(arg string) (int64, error) {
	if arg == "" {
		return 0, fmt.Errorf("parse: empty number")
	}
	base := 10
	digits := arg
	switch arg[0] {
	case 'x', 'X':
		base = 16
		digits = arg[1:]
	case 'b', 'B':
		base = 2
		digits = arg[1:]
	case 'd', 'D':
		base = 10
		digits = arg[1:]
	}
	digits = strings.NewReplacer("'", "", ".", "", "_", "").Replace(digits)
	if digits == "" {
		return 0, fmt.Errorf("parse: no digits in %q", arg)
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("parse: invalid number %q: %w", arg, err)
	}
	return v, nil
}

// ParseUDPFrequency parses a frequency argument as accepted by the UDP
// control protocol: the same radix-prefixed, separator-tolerant integer
// syntax as ParseNumber, plus an optional trailing k, M, or G suffix
// scaling the parsed integer by 1e3, 1e6, or 1e9 respectively. The
// suffix and any number prefix are mutually exclusive with each other
// only in that the suffix is stripped first, so "d100M" parses as
// 100,000,000.
func ParseUDPFrequency(arg string) (uint32, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(arg, "k") || strings.HasSuffix(arg, "K"):
		mult = 1000
		arg = arg[:len(arg)-1]
	case strings.HasSuffix(arg, "M"):
		mult = 1000 * 1000
		arg = arg[:len(arg)-1]
	case strings.HasSuffix(arg, "G"):
		mult = 1000 * 1000 * 1000
		arg = arg[:len(arg)-1]
	}
	v, err := ParseNumber(arg)
	if err != nil {
		return 0, err
	}
	v *= mult
	if v < 0 {
		return 0, fmt.Errorf("parse: negative frequency %d", v)
	}
	return uint32(v), nil
}
