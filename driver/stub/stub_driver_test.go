//go:build !tinygo && !baremetal

package stub

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ystepanoff/uwbpan/transport"
)

// recorder claims every event and forwards it with the frame it saw.
type recorder struct {
	d      *Driver
	events chan seen
}

type seen struct {
	ev    transport.Event
	fctrl byte
	frame []byte
}

func newRecorder(d *Driver) *recorder {
	r := &recorder{d: d, events: make(chan seen, 16)}
	d.AppendHandler(r)
	return r
}

func (r *recorder) record(ev transport.Event) bool {
	s := seen{ev: ev, fctrl: r.d.FrameControl()}
	if ev == transport.EventRxComplete {
		s.frame = make([]byte, r.d.FrameLen())
		r.d.ReadRx(s.frame, 0)
	}
	r.events <- s
	return true
}

func (r *recorder) InterfaceID() transport.InterfaceID { return transport.IDApp }
func (r *recorder) OnTxComplete() bool                 { return r.record(transport.EventTxComplete) }
func (r *recorder) OnRxComplete() bool                 { return r.record(transport.EventRxComplete) }
func (r *recorder) OnRxTimeout() bool                  { return r.record(transport.EventRxTimeout) }
func (r *recorder) OnRxError() bool                    { return r.record(transport.EventRxError) }
func (r *recorder) OnTxError() bool                    { return r.record(transport.EventTxError) }
func (r *recorder) OnReset() bool                      { return r.record(transport.EventReset) }

func (r *recorder) next(t *testing.T) seen {
	t.Helper()
	select {
	case s := <-r.events:
		return s
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return seen{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-r.events:
		t.Fatalf("unexpected %s event", s.ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func newPair(t *testing.T) (*Driver, *Driver) {
	t.Helper()
	air := NewAir(nil)
	a := New(air, 0x0A)
	b := New(air, 0x0B)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestBroadcastReachesListeners(t *testing.T) {
	a, b := newPair(t)
	ra, rb := newRecorder(a), newRecorder(b)

	if err := b.StartRx(); err != nil {
		t.Fatalf("StartRx() error = %v", err)
	}
	frame := []byte{0xC5, 0x01, 2, 3, 4, 5, 6, 7, 8, 9}
	a.WriteTx(frame)
	if err := a.StartTx(); err != nil {
		t.Fatalf("StartTx() error = %v", err)
	}

	if s := ra.next(t); s.ev != transport.EventTxComplete || s.fctrl != 0xC5 {
		t.Errorf("sender got %s fctrl %#x, want tx_complete 0xc5", s.ev, s.fctrl)
	}
	s := rb.next(t)
	if s.ev != transport.EventRxComplete {
		t.Fatalf("receiver got %s, want rx_complete", s.ev)
	}
	if !bytes.Equal(s.frame, frame) {
		t.Errorf("received % x, want % x", s.frame, frame)
	}
	if b.Receiving() {
		t.Error("receiver still enabled after a frame")
	}
	if got := a.GetTxLog(); len(got) != 1 || !bytes.Equal(got[0], frame) {
		t.Errorf("tx log = %v, want the one frame", got)
	}
}

func TestIdleReceiverHearsNothing(t *testing.T) {
	a, b := newPair(t)
	newRecorder(a)
	rb := newRecorder(b)

	a.WriteTx([]byte{0xC5})
	if err := a.StartTx(); err != nil {
		t.Fatalf("StartTx() error = %v", err)
	}
	rb.none(t)
}

func TestRxTimeout(t *testing.T) {
	a, _ := newPair(t)
	ra := newRecorder(a)

	a.SetRxTimeout(500)
	if err := a.StartRx(); err != nil {
		t.Fatalf("StartRx() error = %v", err)
	}
	if s := ra.next(t); s.ev != transport.EventRxTimeout {
		t.Errorf("got %s, want rx_timeout", s.ev)
	}
	if a.Receiving() {
		t.Error("receiver still enabled after timeout")
	}
}

func TestWaitForResponseArmsReceiver(t *testing.T) {
	a, b := newPair(t)
	ra := newRecorder(a)
	newRecorder(b)

	a.SetWait4Resp(true)
	a.WriteTx([]byte{0xC5, 1})
	if err := a.StartTx(); err != nil {
		t.Fatalf("StartTx() error = %v", err)
	}
	if !a.Receiving() {
		t.Fatal("receiver not enabled after a transmit with response wait")
	}
	ra.next(t)

	resp := []byte{0xC5, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	b.WriteTx(resp)
	if err := b.StartTx(); err != nil {
		t.Fatalf("StartTx() error = %v", err)
	}
	s := ra.next(t)
	if s.ev != transport.EventRxComplete || !bytes.Equal(s.frame, resp) {
		t.Errorf("got %s % x, want the response", s.ev, s.frame)
	}
}

func TestDelayedStart(t *testing.T) {
	a, _ := newPair(t)
	ra := newRecorder(a)

	a.WriteTx([]byte{0xC5})
	a.SetDelayStart(1)
	time.Sleep(time.Millisecond)
	if err := a.StartTx(); !errors.Is(err, transport.ErrStartTxLate) {
		t.Errorf("StartTx() in the past error = %v, want %v", err, transport.ErrStartTxLate)
	}
	ra.none(t)

	a.SetDelayStart(a.ReadSysTime() + 5000*TicksPerMicrosecond)
	if err := a.StartTx(); err != nil {
		t.Fatalf("StartTx() error = %v", err)
	}
	if got := len(a.GetTxLog()); got != 0 {
		t.Errorf("frame sent before its start time, log has %d", got)
	}
	if s := ra.next(t); s.ev != transport.EventTxComplete {
		t.Errorf("got %s, want tx_complete", s.ev)
	}
}

func TestFaultInjection(t *testing.T) {
	a, _ := newPair(t)
	ra := newRecorder(a)

	a.FailNextTx(transport.ErrStartTxLate)
	if err := a.StartTx(); !errors.Is(err, transport.ErrStartTxLate) {
		t.Errorf("StartTx() error = %v, want %v", err, transport.ErrStartTxLate)
	}
	a.FailNextRx(transport.ErrStartRx)
	if err := a.StartRx(); !errors.Is(err, transport.ErrStartRx) {
		t.Errorf("StartRx() error = %v, want %v", err, transport.ErrStartRx)
	}
	if err := a.StartRx(); err != nil {
		t.Errorf("fault not cleared: StartRx() error = %v", err)
	}

	a.Raise(transport.EventReset)
	if s := ra.next(t); s.ev != transport.EventReset {
		t.Errorf("got %s, want reset", s.ev)
	}
	if a.Receiving() {
		t.Error("receiver still enabled after reset")
	}

	a.InjectRx([]byte{0x41, 0x88})
	if s := ra.next(t); s.ev != transport.EventRxComplete || s.fctrl != 0x41 {
		t.Errorf("got %s fctrl %#x, want rx_complete 0x41", s.ev, s.fctrl)
	}
}

func TestCloseDetaches(t *testing.T) {
	air := NewAir(nil)
	a := New(air, 0)
	b := New(air, 0)
	if a.LongAddress() == 0 || a.LongAddress() == b.LongAddress() {
		t.Errorf("generated addresses %#x and %#x", a.LongAddress(), b.LongAddress())
	}
	if air.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", air.Len())
	}
	a.Close()
	a.Close()
	if air.Len() != 1 {
		t.Errorf("Len() after Close = %d, want 1", air.Len())
	}
	b.Close()
}

func TestFrameDuration(t *testing.T) {
	a, _ := newPair(t)
	if short, long := a.FrameDuration(10), a.FrameDuration(16); short < preambleMicros || long <= short {
		t.Errorf("FrameDuration(10) = %d, FrameDuration(16) = %d", short, long)
	}
	if a.ReadReg(transport.RegRxTTCKI) != defaultTrackingInterval || a.ReadReg(transport.RegRxTTCKO) != 0 {
		t.Error("clock tracking registers not at their defaults")
	}
}
