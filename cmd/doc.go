/*
Package cmd contains command-line applications built on top of the rtl,
session, rtltcp, and rtludp packages: a TCP streaming daemon, a standalone
UDP register-control daemon, and a device enumeration tool.
*/
package cmd
