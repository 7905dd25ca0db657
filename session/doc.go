/*
Package session implements a high-level API on top of and as an
alternative to the low-level rtl package that is mostly a one-to-one
mapping of the USB register bus. The API provided in this package is
designed using a functional options pattern to wrap common
configuration tasks in composable functions for a highly declarative
API.
*/
package session
