package protocol

import "errors"

var (
	ErrInvalidFrameSize = errors.New("invalid frame size")
	ErrNotInitialized   = errors.New("pan instance not initialized")
	ErrDiscoveryTimeout = errors.New("discovery timed out")
	ErrPoolExhausted    = errors.New("no free slot left")
)
