package master

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ystepanoff/uwbpan/pan"
	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/sched"
	"github.com/ystepanoff/uwbpan/transport"
)

const (
	// DefaultWindow is the receive timeout of one Listen, in µs.
	DefaultWindow = 50000
	// how long Serve waits for the hook to answer a blink
	defaultResponseWait = 100 * time.Millisecond
	// pause after the receiver failed to start
	defaultRetryDelay = 10 * time.Millisecond
)

// Coordinator runs the PAN master side of discovery on one transceiver.
type Coordinator struct {
	dev    transport.Transceiver
	alloc  *Allocator
	log    *zap.Logger
	pan    *pan.Instance
	window uint16
	wait   time.Duration

	panCfg  pan.Config
	queue   *sched.EventQueue
	onAlloc func(Allocation)

	mu        sync.Mutex
	answered  uint64
	answeredC chan struct{}
}

// Option customises a Coordinator.
type Option func(*Coordinator)

func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithWindow sets the receive timeout of each Listen; it bounds how long
// Serve takes to notice a cancelled context.
func WithWindow(us uint16) Option {
	return func(c *Coordinator) {
		if us > 0 {
			c.window = us
		}
	}
}

func WithPANConfig(cfg pan.Config) Option {
	return func(c *Coordinator) { c.panCfg = cfg }
}

func WithQueue(q *sched.EventQueue) Option {
	return func(c *Coordinator) { c.queue = q }
}

// OnAllocate registers fn to be called after every response sent.
func OnAllocate(fn func(Allocation)) Option {
	return func(c *Coordinator) { c.onAlloc = fn }
}

// NewCoordinator initialises a PAN instance on dev whose deferred hook
// allocates through alloc and answers the blink.
func NewCoordinator(dev transport.Transceiver, alloc *Allocator, opts ...Option) *Coordinator {
	c := &Coordinator{
		dev:       dev,
		alloc:     alloc,
		log:       zap.NewNop(),
		window:    DefaultWindow,
		wait:      defaultResponseWait,
		panCfg:    pan.DefaultConfig(),
		answeredC: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pan = pan.New(dev, c.panCfg,
		pan.WithLogger(c.log),
		pan.WithQueue(c.queue),
		pan.WithPostprocess(c.respond),
	)
	dev.AppendHandler(strayFrames{c})
	return c
}

// Instance exposes the underlying PAN instance.
func (c *Coordinator) Instance() *pan.Instance { return c.pan }

// Close detaches the coordinator from the transceiver.
func (c *Coordinator) Close() {
	c.dev.RemoveHandler(transport.IDApp)
	c.pan.Free()
}

// Serve listens for blinks until ctx is done. After a blink it waits for
// the response to be on its way before the receiver is armed again, so the
// hook never competes with the next Listen for the transceiver.
func (c *Coordinator) Serve(ctx context.Context) error {
	c.log.Info("master: serving",
		zap.String("UUID", proto.UUID(c.dev.LongAddress())),
		zap.String("PANID", hex16(c.alloc.PANID())),
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.dev.SetRxTimeout(c.window)
		st := c.pan.Listen(transport.Blocking)
		if st.StartRxError {
			c.log.Warn("master: receiver failed to start")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(defaultRetryDelay):
			}
			continue
		}

		rx := c.pan.LastReceived()
		if rx.Kind != proto.KindBlink || c.answeredUpTo(rx.Count) {
			continue
		}
		if err := c.awaitAnswer(ctx, rx.Count); err != nil {
			return err
		}
	}
}

func (c *Coordinator) awaitAnswer(ctx context.Context, count uint64) error {
	timer := time.NewTimer(c.wait)
	defer timer.Stop()
	for !c.answeredUpTo(count) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			c.log.Warn("master: blink left unanswered", zap.Uint64("count", count))
			return nil
		case <-c.answeredC:
		}
	}
	return nil
}

func (c *Coordinator) answeredUpTo(count uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answered >= count
}

// respond is the deferred hook. It runs on the event queue after a claimed
// receive.
func (c *Coordinator) respond(p *pan.Instance) {
	rx := p.LastReceived()
	if rx.Kind != proto.KindBlink {
		return
	}
	defer c.markAnswered(rx.Count)

	al, err := c.alloc.Allocate(rx.Frame.LongAddress)
	if err != nil {
		c.log.Warn("master: allocation failed",
			zap.String("UUID", proto.UUID(rx.Frame.LongAddress)),
			zap.Error(err),
		)
		return
	}

	if st := p.Respond(rx.Frame, al.Identity(), 0); st.StartTxError {
		c.log.Warn("master: response not sent",
			zap.String("UUID", proto.UUID(al.LongAddress)),
		)
		return
	}
	c.log.Info("master: allocated",
		zap.Uint64("utime", sched.Uptime()),
		zap.String("UUID", proto.UUID(al.LongAddress)),
		zap.String("ID", hex16(al.ShortAddress)),
		zap.String("PANID", hex16(al.PANID)),
		zap.Uint16("slot", al.SlotID),
	)
	if c.onAlloc != nil {
		c.onAlloc(al)
	}
}

func (c *Coordinator) markAnswered(count uint64) {
	c.mu.Lock()
	if count > c.answered {
		c.answered = count
	}
	c.mu.Unlock()
	select {
	case c.answeredC <- struct{}{}:
	default:
	}
}

// strayFrames sits behind the PAN handler and closes a Listen that ended on
// a frame no module claimed, so Serve can arm the receiver again.
type strayFrames struct{ c *Coordinator }

func (s strayFrames) InterfaceID() transport.InterfaceID { return transport.IDApp }
func (s strayFrames) OnTxComplete() bool                 { return false }
func (s strayFrames) OnRxComplete() bool                 { return s.release() }
func (s strayFrames) OnRxTimeout() bool                  { return false }
func (s strayFrames) OnRxError() bool                    { return s.release() }
func (s strayFrames) OnTxError() bool                    { return s.release() }
func (s strayFrames) OnReset() bool                      { return false }

func (s strayFrames) release() bool {
	s.c.log.Debug("master: unclaimed event", zap.Uint8("fctrl", s.c.dev.FrameControl()))
	// a held transaction semaphore is freed, a free one is left alone
	s.c.pan.OnReset()
	return true
}

func hex16(v uint16) string { return fmt.Sprintf("%X", v) }
