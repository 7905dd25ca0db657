
package parse

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"d100", 100},
		{"x1A", 26},
		{"xff", 255},
		{"b1010", 10},
		{"1'000'000", 1000000},
		{"x1a_2f", 0x1a2f},
		{"1.000.000", 1000000},
	}
	for _, c := range cases {
		got, err := ParseNumber(c.in)
		if err != nil {
			t.Fatalf("ParseNumber(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseNumber(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseNumberInvalid(t *testing.T) {
	for _, in := range []string{"", "x", "xZZ"} {
		if _, err := ParseNumber(in); err == nil {
			t.Fatalf("ParseNumber(%q): expected error", in)
		}
	}
}

func TestParseUDPFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want uint32
	}{
		{"100000000", 100000000},
		{"100M", 100000000},
		{"d100M", 100000000},
		{"1G", 1000000000},
		{"144.5k", 1445000}, // '.' is an ignored digit separator, not a decimal point
		{"-1k", 0},          // last case must error: negative frequencies are rejected
	}
	for i, c := range cases {
		got, err := ParseUDPFrequency(c.in)
		if i == len(cases)-1 {
			if err == nil {
				t.Fatalf("ParseUDPFrequency(%q): expected error for negative input", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseUDPFrequency(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseUDPFrequency(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
