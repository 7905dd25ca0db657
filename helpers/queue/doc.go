// Package queue implements a bounded producer/consumer buffer queue.
// Unlike a plain buffered channel, a full queue does not block or drop
// the newest item; it drops the oldest queued item and admits the new
// one, so a slow consumer always sees the most recent data once it
// catches up.
package queue
