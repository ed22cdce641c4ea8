package protocol

// PAN discovery constants (platform independent). All higher layers should depend on this file.
const (
	// Frame sizing
	// Layout (little endian, packed):
	//   blink:    FCtrl (1) | Seq (1) | LongAddress (8)
	//   response: FCtrl (1) | Seq (1) | LongAddress (8) | ShortAddress (2) | PANID (2) | SlotID (2)
	// The length of the received frame is the only thing that tells them apart.

	FrameControlSize = 1
	SequenceSize     = 1
	LongAddressSize  = 8
	ShortAddressSize = 2
	PANIDSize        = 2
	SlotIDSize       = 2

	BlinkFrameSize    = FrameControlSize + SequenceSize + LongAddressSize          // 10 bytes
	ResponseFrameSize = BlinkFrameSize + ShortAddressSize + PANIDSize + SlotIDSize // 16 bytes

	// IEEE 802.15.4 blink frame control with a 64-bit source address.
	FCtrlBlinkTag64 = 0xC5

	// Receiver time tracking offset field of the RX_TTCKO register.
	RxTTCKOOffsetMask = 0x0007FFFF

	// Rotating frame buffers per instance
	DefaultPoolSize = 2

	// Timing defaults. Holdoff and timeout are in microseconds, the period in
	// hardware time units before it is shifted into the system clock domain.
	DefaultTxHoldoffDelay  = 0x0800
	DefaultRxTimeoutPeriod = 0x4000
	DefaultPeriod          = 100

	// PeriodShift converts a period into system clock ticks.
	PeriodShift = 15

	// offsets inside the packed layout
	offSeq    = FrameControlSize
	offLong   = offSeq + SequenceSize
	offShort  = offLong + LongAddressSize
	offPANID  = offShort + ShortAddressSize
	offSlotID = offPANID + PANIDSize
)
