/*
Package librtlsdr is the top-level package of the librtlsdr module, a
network-addressable I/Q sample server built around RTL2832U-based USB DVB-T
dongles.

See the rtl package for direct access to the device driver core (USB
register bus, tuner dispatch, baseband engine, async streaming, and
software AGC), the session package for a more convenient and idiomatic
device-configuration API, and the rtltcp and rtludp packages for the
network-facing streaming and control-plane servers.
*/
package librtlsdr
