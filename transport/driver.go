package transport

import "errors"

var (
	// ErrStartTxLate is returned by StartTx when a delayed start missed its
	// window (half period delay warning).
	ErrStartTxLate = errors.New("delayed transmit start missed its window")
	ErrStartRx     = errors.New("receiver failed to start")
)

// Register identifies a transceiver register readable through ReadReg.
type Register uint8

const (
	// RegRxTTCKI is the receiver time tracking interval.
	RegRxTTCKI Register = 0x13
	// RegRxTTCKO is the receiver time tracking offset.
	RegRxTTCKO Register = 0x14
)

// Mode selects whether an operation waits for the transaction to finish.
type Mode uint8

const (
	Blocking Mode = iota
	NonBlocking
)

func (m Mode) String() string {
	if m == NonBlocking {
		return "nonblocking"
	}
	return "blocking"
}

// Transceiver is the interface that wraps the radio operations the PAN core
// needs. Completion is reported asynchronously through the handlers appended
// to the transceiver's chain.
type Transceiver interface {
	// WriteTx loads the transmit buffer.
	WriteTx(frame []byte)
	// StartTx starts the transmission of the loaded buffer, honouring the
	// start delay and response wait set beforehand.
	StartTx() error
	// StartRx enables the receiver with the configured timeout.
	StartRx() error
	// ReadRx copies the last received frame starting at offset into buf.
	ReadRx(buf []byte, offset int)
	ReadRxTime() uint64
	ReadSysTime() uint64
	ReadReg(reg Register) uint32

	SetWait4Resp(enable bool)
	// SetDelayStart sets the system time at which the next StartTx fires;
	// zero means immediately.
	SetDelayStart(ticks uint64)
	// SetRxTimeout bounds the next receive in microseconds; zero waits forever.
	SetRxTimeout(us uint16)
	// FrameDuration returns the air time of a frame of n bytes in microseconds.
	FrameDuration(n int) uint16

	// FrameControl and FrameLen describe the frame of the current event.
	FrameControl() byte
	FrameLen() int
	LongAddress() uint64

	AppendHandler(h Handler)
	RemoveHandler(id InterfaceID)
}
