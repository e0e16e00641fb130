package domain

import (
	"sync/atomic"
	"time"
)

var lastTimestamp int64

// Now returns the current UTC time truncated to microseconds. Successive
// calls always return strictly increasing values so an update is ordered
// after the create it follows, even within one clock tick.
func Now() time.Time {
	return time.UnixMicro(nextTimestamp()).UTC()
}

func nextTimestamp() int64 {
	for {
		now := time.Now().UnixMicro()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}
