package pan

import (
	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/transport"
)

// The handlers below run in the transceiver's event context. They return
// true when they claim the event.

func (p *Instance) InterfaceID() transport.InterfaceID { return transport.IDPAN }

// OnRxComplete is executed on both the PAN master and the node that blinked.
// On the master the deferred hook is where allocation happens; on the node a
// response carrying its own long address is adopted and ends the session.
func (p *Instance) OnRxComplete() bool {
	p.mu.Lock()
	if p.dev.FrameControl() != proto.FCtrlBlinkTag64 {
		valid := p.status.Valid
		p.mu.Unlock()
		if valid {
			return false
		}
		// not provisioned yet: grab everything
		p.sem.Release()
		return true
	}

	frame := p.pool.Current()
	n := p.dev.FrameLen()
	kind := proto.KindOf(n)
	matched := false

	switch kind {
	case proto.KindBlink:
		p.readFrame(frame, proto.BlinkFrameSize)
		frame.ReceptionTimestamp = p.dev.ReadRxTime()
		interval := int32(p.dev.ReadReg(transport.RegRxTTCKI))
		offset := p.dev.ReadReg(transport.RegRxTTCKO)
		frame.CorrectionFactor = proto.CorrectionFactor(interval, offset)
	case proto.KindResponse:
		p.readFrame(frame, proto.ResponseFrameSize)
		if frame.LongAddress == p.dev.LongAddress() {
			p.identity = proto.IdentityOf(frame)
			p.status.Valid = true
			matched = true
		}
	}

	p.last = Received{
		Frame:   *frame,
		Kind:    kind,
		Length:  n,
		Count:   p.last.Count + 1,
		Matched: matched,
	}
	ev := p.postprocess
	p.mu.Unlock()

	if matched {
		p.semDone.Release()
	}
	if ev != nil {
		p.queue.Put(ev)
	}
	p.sem.Release()
	return true
}

func (p *Instance) readFrame(frame *proto.Frame, n int) {
	buf := make([]byte, n)
	p.dev.ReadRx(buf, 0)
	// n is one of the two frame sizes, DecodeFrame cannot fail
	_, _ = proto.DecodeFrame(frame, buf)
}

// OnTxComplete moves the pool to the next slot. The caller that started the
// transmit owns the semaphore.
func (p *Instance) OnTxComplete() bool {
	if p.dev.FrameControl() != proto.FCtrlBlinkTag64 {
		return false
	}
	p.mu.Lock()
	p.pool.Advance()
	p.mu.Unlock()
	return true
}

// OnRxTimeout unblocks a caller waiting for a response. No answer is a normal
// outcome: nobody heard the blink, or nobody blinked.
func (p *Instance) OnRxTimeout() bool {
	p.setFlag(func(s *Status) { s.RxTimeout = true })
	return p.sem.Release()
}

func (p *Instance) OnRxError() bool {
	if p.dev.FrameControl() != proto.FCtrlBlinkTag64 {
		return false
	}
	p.setFlag(func(s *Status) { s.RxError = true })
	p.sem.Release()
	return true
}

func (p *Instance) OnTxError() bool {
	if p.dev.FrameControl() != proto.FCtrlBlinkTag64 {
		return false
	}
	p.setFlag(func(s *Status) { s.TxError = true })
	p.sem.Release()
	return true
}

// OnReset frees a held transaction semaphore and lets the reset travel on to
// the other modules on the chain.
func (p *Instance) OnReset() bool {
	if p.sem.Count() == 0 {
		p.sem.Release()
		return false
	}
	return true
}

func (p *Instance) setFlag(set func(*Status)) {
	p.mu.Lock()
	set(&p.status)
	p.mu.Unlock()
}
