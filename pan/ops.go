package pan

import (
	"errors"

	"go.uber.org/zap"

	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/sched"
	"github.com/ystepanoff/uwbpan/transport"
)

// Listen arms the receiver for blinks. A listening master always holds a
// valid PAN. In Blocking mode it returns once a handler has closed the
// transaction (frame, timeout or error).
func (p *Instance) Listen(mode transport.Mode) Status {
	p.mustBeInitialized()
	p.sem.Pend()

	p.mu.Lock()
	p.status.Valid = true
	clearOutcome(&p.status)
	p.mu.Unlock()

	if err := p.dev.StartRx(); err != nil {
		p.setFlag(func(s *Status) { s.StartRxError = true })
		p.sem.Release()
	}

	if mode == transport.Blocking {
		p.sem.Pend()
		defer p.sem.Release()
	}
	return p.Status()
}

// Blink transmits a discovery frame at delay and waits for the master's
// response. When the delayed start misses its window the next attempt is
// pushed out by one period and the StartTxError flag is returned; any other
// transmit failure sets TxError and leaves the schedule alone.
func (p *Instance) Blink(mode transport.Mode, delay uint64) Status {
	p.mustBeInitialized()
	p.sem.Pend()

	p.mu.Lock()
	clearOutcome(&p.status)
	frame := p.pool.Current()
	frame.FrameControl = proto.FCtrlBlinkTag64
	frame.SeqNum += uint8(p.pool.Len())
	frame.LongAddress = p.dev.LongAddress()
	data := proto.EncodeBlink(frame)
	cfg := p.cfg
	p.mu.Unlock()

	p.dev.WriteTx(data)
	p.dev.SetWait4Resp(true)
	p.dev.SetDelayStart(delay)
	timeout := uint32(p.dev.FrameDuration(proto.BlinkFrameSize)) +
		uint32(cfg.RxTimeoutPeriod) + uint32(cfg.TxHoldoffDelay)
	p.dev.SetRxTimeout(clampTimeout(timeout))

	if err := p.dev.StartTx(); err != nil {
		p.mu.Lock()
		if errors.Is(err, transport.ErrStartTxLate) {
			// half period delay warning: try for the next epoch, the receiver
			// tells the attempts apart by seq num
			p.status.StartTxError = true
			frame.TransmissionTimestamp += uint64(cfg.Period) << proto.PeriodShift
		} else {
			p.status.TxError = true
		}
		p.mu.Unlock()
		st := p.Status()
		p.sem.Release()
		return st
	}

	if mode == transport.Blocking {
		p.sem.Pend()
		defer p.sem.Release()
	}
	return p.Status()
}

// Start opens a discovery session. It blocks while a previous session is
// still waiting for its allocation; the session ends when a response for
// this node is received.
func (p *Instance) Start() {
	p.mustBeInitialized()
	p.semDone.Pend()

	p.mu.Lock()
	p.pool.Reset(1)
	p.status.Valid = false
	p.mu.Unlock()

	p.log.Info("pan: provisioning", zap.Uint64("utime", sched.Uptime()))
}

// Respond sends an allocation back to the node that sent req. It is meant to
// be called by the master's allocation hook; no answer is expected so the
// transaction closes as soon as the transmit has started.
func (p *Instance) Respond(req proto.Frame, id proto.Identity, delay uint64) Status {
	p.mustBeInitialized()
	p.sem.Pend()
	defer p.sem.Release()

	resp := proto.Frame{
		FrameControl: proto.FCtrlBlinkTag64,
		SeqNum:       req.SeqNum,
		LongAddress:  req.LongAddress,
		ShortAddress: id.ShortAddress,
		PANID:        id.PANID,
		SlotID:       id.SlotID,
	}

	p.mu.Lock()
	clearOutcome(&p.status)
	p.mu.Unlock()

	p.dev.WriteTx(proto.EncodeResponse(&resp))
	p.dev.SetWait4Resp(false)
	p.dev.SetDelayStart(delay)
	if err := p.dev.StartTx(); err != nil {
		p.setFlag(func(s *Status) { s.StartTxError = true })
	}
	return p.Status()
}

func clearOutcome(s *Status) {
	s.StartTxError = false
	s.StartRxError = false
	s.RxTimeout = false
	s.RxError = false
	s.TxError = false
}

func clampTimeout(us uint32) uint16 {
	if us > 0xFFFF {
		return 0xFFFF
	}
	return uint16(us)
}
