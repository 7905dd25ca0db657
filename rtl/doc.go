// Package rtl is the top-level package of the RTL2832U device driver. See
// the regbus, baseband, tuner, and stream files for direct access to the
// USB register bus, demodulator state machine, tuner dispatch table, and
// asynchronous streaming engine, or the session package for a more
// convenient and idiomatic configuration API.
package rtl
