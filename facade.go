// Package uwbpan provides a façade to the PAN discovery layer: the protocol
// types, the PAN instance and the sample coordinator.
package uwbpan

import (
	"github.com/ystepanoff/uwbpan/master"
	"github.com/ystepanoff/uwbpan/pan"
	"github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/transport"
)

// The constructors are split into build-tag specific files:
// - constructors_host.go - simulated air and stub transceivers (//go:build !tinygo && !baremetal)

type (
	Frame       = protocol.Frame
	Identity    = protocol.Identity
	Instance    = pan.Instance
	Config      = pan.Config
	Status      = pan.Status
	Allocation  = master.Allocation
	Coordinator = master.Coordinator
	Transceiver = transport.Transceiver
)

// Error constants exposed in the public API
var (
	ErrInvalidFrameSize = protocol.ErrInvalidFrameSize
	ErrNotInitialized   = protocol.ErrNotInitialized
	ErrDiscoveryTimeout = protocol.ErrDiscoveryTimeout
	ErrPoolExhausted    = protocol.ErrPoolExhausted
	ErrStartTxLate      = transport.ErrStartTxLate
)

// Constants exposed in the public API
const (
	FCtrlBlinkTag64   = protocol.FCtrlBlinkTag64
	BlinkFrameSize    = protocol.BlinkFrameSize
	ResponseFrameSize = protocol.ResponseFrameSize

	Blocking    = transport.Blocking
	NonBlocking = transport.NonBlocking
)

// DefaultConfig returns the default discovery timing.
func DefaultConfig() Config { return pan.DefaultConfig() }
