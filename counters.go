package devfs

import (
	"sync/atomic"
	"time"
)

// Counters tracks device usage. The three operation counters are 32-bit
// and wrap on overflow. All methods are safe for concurrent use, and a nil
// *Counters is a valid no-op receiver.
type Counters struct {
	opens    atomic.Uint32
	reads    atomic.Uint32
	writes   atomic.Uint32
	openTime atomic.Int64 // nanoseconds summed over closed sessions
}

// Opened records one completed open
func (c *Counters) Opened() {
	if c == nil {
		return
	}
	c.opens.Add(1)
}

// Read records one completed read
func (c *Counters) Read() {
	if c == nil {
		return
	}
	c.reads.Add(1)
}

// Wrote records one completed write
func (c *Counters) Wrote() {
	if c == nil {
		return
	}
	c.writes.Add(1)
}

// Closed folds the elapsed time of a closed session into the total
func (c *Counters) Closed(elapsed time.Duration) {
	if c == nil {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	c.openTime.Add(int64(elapsed))
}

// Snapshot returns a point-in-time copy of the counters
func (c *Counters) Snapshot() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Opens:    c.opens.Load(),
		Writes:   c.writes.Load(),
		Reads:    c.reads.Load(),
		OpenTime: time.Duration(c.openTime.Load()),
	}
}
