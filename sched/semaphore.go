// Package sched provides the scheduling primitives the PAN core relies on:
// binary semaphores, a deferred event queue and a monotonic clock.
package sched

// Semaphore is a binary semaphore. Pend blocks until the token is available
// and takes it; Release puts it back. Releasing a free semaphore is a no-op,
// so the count never exceeds one.
type Semaphore struct {
	token chan struct{}
}

// NewSemaphore returns a semaphore holding count tokens (0 or 1).
func NewSemaphore(count int) *Semaphore {
	s := &Semaphore{token: make(chan struct{}, 1)}
	if count > 0 {
		s.token <- struct{}{}
	}
	return s
}

// Pend waits forever for the token.
func (s *Semaphore) Pend() { <-s.token }

// tryPend takes the token if it is available.
func (s *Semaphore) tryPend() bool {
	select {
	case <-s.token:
		return true
	default:
		return false
	}
}

// Release returns the token and reports whether the semaphore was held.
func (s *Semaphore) Release() bool {
	select {
	case s.token <- struct{}{}:
		return true
	default:
		return false
	}
}

// Count is 1 when the semaphore is free, 0 when held.
func (s *Semaphore) Count() int { return len(s.token) }
