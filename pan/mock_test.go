package pan

import (
	"sync"

	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/transport"
)

// MockDriver implements transport.Transceiver for testing. Events are only
// delivered when the test calls Fire, or from the OnStartTx hook.
type MockDriver struct {
	mu    sync.Mutex
	chain transport.Chain

	longAddress uint64
	txLog       [][]byte
	txBuf       []byte
	rxBuf       []byte
	fctrl       byte
	frameLen    int

	sysTime uint64
	rxTime  uint64
	regs    map[transport.Register]uint32

	wait4resp bool
	delay     uint64
	rxTimeout uint16

	startTxErr   error
	startRxErr   error
	startTxCalls int
	startRxCalls int

	// OnStartTx runs on its own goroutine after a successful StartTx.
	OnStartTx func(d *MockDriver)
}

func NewMockDriver(longAddress uint64) *MockDriver {
	return &MockDriver{
		longAddress: longAddress,
		sysTime:     0x1000,
		rxTime:      0x2000,
		regs:        make(map[transport.Register]uint32),
	}
}

func (d *MockDriver) WriteTx(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txBuf = append([]byte(nil), frame...)
}

func (d *MockDriver) StartTx() error {
	d.mu.Lock()
	d.startTxCalls++
	if err := d.startTxErr; err != nil {
		d.mu.Unlock()
		return err
	}
	d.txLog = append(d.txLog, d.txBuf)
	if len(d.txBuf) > 0 {
		d.fctrl = d.txBuf[0]
	}
	hook := d.OnStartTx
	d.mu.Unlock()

	if hook != nil {
		go hook(d)
	}
	return nil
}

func (d *MockDriver) StartRx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startRxCalls++
	return d.startRxErr
}

func (d *MockDriver) ReadRx(buf []byte, offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < len(d.rxBuf) {
		copy(buf, d.rxBuf[offset:])
	}
}

func (d *MockDriver) ReadRxTime() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxTime
}

func (d *MockDriver) ReadSysTime() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sysTime
}

func (d *MockDriver) ReadReg(reg transport.Register) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

func (d *MockDriver) SetWait4Resp(enable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wait4resp = enable
}

func (d *MockDriver) SetDelayStart(ticks uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = ticks
}

func (d *MockDriver) SetRxTimeout(us uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxTimeout = us
}

func (d *MockDriver) FrameDuration(n int) uint16 { return uint16(100 + n) }

func (d *MockDriver) FrameControl() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fctrl
}

func (d *MockDriver) FrameLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frameLen
}

func (d *MockDriver) LongAddress() uint64 { return d.longAddress }

func (d *MockDriver) AppendHandler(h transport.Handler)      { d.chain.Append(h) }
func (d *MockDriver) RemoveHandler(id transport.InterfaceID) { d.chain.Remove(id) }

// Test helper methods

func (d *MockDriver) Fire(ev transport.Event) bool { return d.chain.Dispatch(ev) }

// InjectRx makes data the current received frame.
func (d *MockDriver) InjectRx(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxBuf = append([]byte(nil), data...)
	d.frameLen = len(data)
	if len(data) > 0 {
		d.fctrl = data[0]
	}
}

func (d *MockDriver) SetFrameControl(fctrl byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fctrl = fctrl
}

func (d *MockDriver) SetStartTxError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startTxErr = err
}

func (d *MockDriver) SetStartRxError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startRxErr = err
}

func (d *MockDriver) SetRegister(reg transport.Register, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[reg] = v
}

func (d *MockDriver) GetTxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.txLog))
	for i, data := range d.txLog {
		out[i] = append([]byte(nil), data...)
	}
	return out
}

func (d *MockDriver) StartTxCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startTxCalls
}

func (d *MockDriver) StartRxCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startRxCalls
}

func blinkFrom(longAddress uint64, seq uint8) []byte {
	return proto.EncodeBlink(&proto.Frame{
		FrameControl: proto.FCtrlBlinkTag64,
		SeqNum:       seq,
		LongAddress:  longAddress,
	})
}

func responseTo(longAddress uint64, id proto.Identity) []byte {
	return proto.EncodeResponse(&proto.Frame{
		FrameControl: proto.FCtrlBlinkTag64,
		LongAddress:  longAddress,
		ShortAddress: id.ShortAddress,
		PANID:        id.PANID,
		SlotID:       id.SlotID,
	})
}
