package forwarder

import (
	"sync/atomic"
	"time"
)

var lastEntryID atomic.Int64

// NextEntryID derives an entry id from the capture time in milliseconds,
// bumped past the previously issued id so that entries created in the same
// millisecond (secondary-object fan-out) still get distinct ids.
func NextEntryID(capturedAt time.Time) int64 {
	millis := capturedAt.UnixMilli()
	for {
		last := lastEntryID.Load()
		id := millis
		if id <= last {
			id = last + 1
		}
		if lastEntryID.CompareAndSwap(last, id) {
			return id
		}
	}
}
