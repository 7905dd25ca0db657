// Package rtltcp implements the rtl_tcp wire protocol: a 12-byte
// capability banner, a 5-byte binary command frame, and a
// producer/consumer sample stream with oldest-drop backpressure. It is
// compatible with the many existing rtl_tcp clients.
package rtltcp
