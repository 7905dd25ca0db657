// Package rtludp implements the optional ASCII-line UDP side channel for
// low-level tuner register access and retuning. It is gated to R820T and
// R828D tuners, the only variants whose register 27 filter-corner bits
// this package knows how to preserve across a retune.
package rtludp
