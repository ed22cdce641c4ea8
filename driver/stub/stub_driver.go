//go:build !tinygo && !baremetal

// Package stub provides a simulated transceiver for host-side runs and
// tests. Drivers attached to the same Air hear each other; events are
// dispatched to the handler chain from a per-driver goroutine standing in
// for the interrupt context.
package stub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/transport"
)

const (
	// TicksPerMicrosecond is the resolution of the simulated system time.
	TicksPerMicrosecond = 64

	// default clock tracking: zero offset, correction factor 1
	defaultTrackingInterval = 0x01F00000

	preambleMicros = 128
	bitsPerMicros  = 6.8

	irqDepth = 32
)

type irq struct {
	ev     transport.Event
	fctrl  byte
	frame  []byte
	rxTime uint64
}

// Driver simulates one transceiver.
type Driver struct {
	air         *Air
	log         *zap.Logger
	longAddress uint64
	scale       float64
	chain       transport.Chain

	mu        sync.Mutex
	txBuf     []byte
	txLog     ringBuffer
	rxBuf     []byte
	fctrl     byte
	frameLen  int
	rxTime    uint64
	regs      map[transport.Register]uint32
	wait4resp bool
	delay     uint64
	rxTimeout uint16
	txFault   error
	rxFault   error

	receiving bool
	gen       uint64
	timer     *time.Timer

	irqs      chan irq
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option customises a Driver.
type Option func(*Driver)

func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// WithTimeScale stretches (factor > 1) or compresses every simulated wait.
func WithTimeScale(factor float64) Option {
	return func(d *Driver) {
		if factor > 0 {
			d.scale = factor
		}
	}
}

// New attaches a driver with the given EUI-64 to air. A zero address is
// replaced by a random locally administered one.
func New(air *Air, longAddress uint64, opts ...Option) *Driver {
	if longAddress == 0 {
		longAddress = proto.GenerateLongAddress()
	}
	d := &Driver{
		air:         air,
		log:         zap.NewNop(),
		longAddress: longAddress,
		scale:       1,
		regs: map[transport.Register]uint32{
			transport.RegRxTTCKI: defaultTrackingInterval,
		},
		irqs: make(chan irq, irqDepth),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	air.attach(d)

	d.wg.Add(1)
	go d.isr()
	return d
}

// Close detaches the driver from the air and stops its event goroutine.
func (d *Driver) Close() {
	d.closeOnce.Do(func() {
		d.air.detach(d)
		d.mu.Lock()
		d.disarmLocked()
		d.mu.Unlock()
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Driver) isr() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case i := <-d.irqs:
			d.mu.Lock()
			d.fctrl = i.fctrl
			if i.frame != nil {
				d.rxBuf = i.frame
				d.frameLen = len(i.frame)
				d.rxTime = i.rxTime
			}
			d.mu.Unlock()

			if !d.chain.Dispatch(i.ev) {
				d.log.Debug("stub: event not claimed",
					zap.String("UUID", d.uuid()),
					zap.Stringer("event", i.ev),
				)
			}
		}
	}
}

func (d *Driver) raise(i irq) {
	select {
	case d.irqs <- i:
	case <-d.done:
	default:
		d.log.Warn("stub: event dropped",
			zap.String("UUID", d.uuid()),
			zap.Stringer("event", i.ev),
		)
	}
}

func (d *Driver) WriteTx(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txBuf = append(d.txBuf[:0], frame...)
}

// StartTx sends the loaded buffer. A non-zero start delay in the past fails
// with transport.ErrStartTxLate; one in the future postpones the send.
func (d *Driver) StartTx() error {
	d.mu.Lock()
	if err := d.txFault; err != nil {
		d.txFault = nil
		d.mu.Unlock()
		return err
	}
	now := d.air.now()
	if d.delay != 0 && d.delay <= now {
		d.mu.Unlock()
		return transport.ErrStartTxLate
	}
	frame := append([]byte(nil), d.txBuf...)
	var wait time.Duration
	if d.delay != 0 {
		wait = d.scaled(time.Duration((d.delay-now)/TicksPerMicrosecond) * time.Microsecond)
	}
	d.mu.Unlock()

	if wait > 0 {
		time.AfterFunc(wait, func() { d.transmit(frame) })
	} else {
		d.transmit(frame)
	}
	return nil
}

func (d *Driver) transmit(frame []byte) {
	d.mu.Lock()
	d.txLog.push(frame)
	var fctrl byte
	if len(frame) > 0 {
		fctrl = frame[0]
	}
	if d.wait4resp {
		// armed before the frame is on air so an immediate answer is heard
		d.armLocked()
	}
	d.mu.Unlock()

	d.raise(irq{ev: transport.EventTxComplete, fctrl: fctrl})
	d.air.broadcast(d, frame)
}

func (d *Driver) StartRx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rxFault; err != nil {
		d.rxFault = nil
		return err
	}
	d.armLocked()
	return nil
}

func (d *Driver) armLocked() {
	d.disarmLocked()
	d.receiving = true
	d.gen++
	if d.rxTimeout == 0 {
		return
	}
	gen := d.gen
	wait := d.scaled(time.Duration(d.rxTimeout) * time.Microsecond)
	d.timer = time.AfterFunc(wait, func() { d.expire(gen) })
}

func (d *Driver) disarmLocked() {
	d.receiving = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Driver) expire(gen uint64) {
	d.mu.Lock()
	if !d.receiving || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.disarmLocked()
	fctrl := d.fctrl
	d.mu.Unlock()
	d.raise(irq{ev: transport.EventRxTimeout, fctrl: fctrl})
}

// receive delivers frame if the receiver is enabled.
func (d *Driver) receive(frame []byte) bool {
	d.mu.Lock()
	if !d.receiving {
		d.mu.Unlock()
		return false
	}
	d.disarmLocked()
	now := d.air.now()
	d.mu.Unlock()

	i := irq{ev: transport.EventRxComplete, frame: append([]byte(nil), frame...), rxTime: now}
	if len(frame) > 0 {
		i.fctrl = frame[0]
	}
	d.raise(i)
	return true
}

func (d *Driver) ReadRx(buf []byte, offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < len(d.rxBuf) {
		copy(buf, d.rxBuf[offset:])
	}
}

func (d *Driver) ReadRxTime() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxTime
}

func (d *Driver) ReadSysTime() uint64 { return d.air.now() }

func (d *Driver) ReadReg(reg transport.Register) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[reg]
}

func (d *Driver) SetWait4Resp(enable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wait4resp = enable
}

func (d *Driver) SetDelayStart(ticks uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = ticks
}

func (d *Driver) SetRxTimeout(us uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxTimeout = us
}

// FrameDuration approximates the air time at 6.8 Mb/s with a 128 symbol
// preamble.
func (d *Driver) FrameDuration(n int) uint16 {
	return uint16(preambleMicros + float64(n*8)/bitsPerMicros)
}

func (d *Driver) FrameControl() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fctrl
}

func (d *Driver) FrameLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frameLen
}

func (d *Driver) LongAddress() uint64 { return d.longAddress }

func (d *Driver) AppendHandler(h transport.Handler)      { d.chain.Append(h) }
func (d *Driver) RemoveHandler(id transport.InterfaceID) { d.chain.Remove(id) }

// Fault injection and inspection

// InjectRx delivers data as if it had been received, whether or not the
// receiver is enabled.
func (d *Driver) InjectRx(data []byte) {
	d.mu.Lock()
	d.disarmLocked()
	now := d.air.now()
	d.mu.Unlock()

	i := irq{ev: transport.EventRxComplete, frame: append([]byte(nil), data...), rxTime: now}
	if len(data) > 0 {
		i.fctrl = data[0]
	}
	d.raise(i)
}

// FailNextTx makes the next StartTx return err.
func (d *Driver) FailNextTx(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txFault = err
}

// FailNextRx makes the next StartRx return err.
func (d *Driver) FailNextRx(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxFault = err
}

// Raise delivers ev to the chain with the current frame control.
func (d *Driver) Raise(ev transport.Event) {
	d.mu.Lock()
	if ev != transport.EventTxComplete && ev != transport.EventTxError {
		d.disarmLocked()
	}
	fctrl := d.fctrl
	d.mu.Unlock()
	d.raise(irq{ev: ev, fctrl: fctrl})
}

func (d *Driver) SetRegister(reg transport.Register, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[reg] = v
}

// Receiving reports whether the receiver is enabled.
func (d *Driver) Receiving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.receiving
}

func (d *Driver) GetTxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txLog.snapshot()
}

func (d *Driver) scaled(v time.Duration) time.Duration {
	return time.Duration(float64(v) * d.scale)
}

func (d *Driver) uuid() string { return proto.UUID(d.longAddress) }

const ringCapacity = 64

type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		// Overwrite the oldest when buffer is full to keep memory bounded
		rb.data[rb.tail] = nil
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, rb.count)
	i := rb.head
	for c := 0; c < rb.count; c++ {
		out[c] = append([]byte(nil), rb.data[i]...)
		i = (i + 1) % ringCapacity
	}
	return out
}
