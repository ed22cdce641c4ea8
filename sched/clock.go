package sched

import "time"

var epoch = time.Now()

// Uptime returns microseconds since process start on the monotonic clock.
func Uptime() uint64 { return uint64(time.Since(epoch) / time.Microsecond) }
