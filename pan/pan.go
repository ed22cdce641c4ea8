// Package pan implements the PAN discovery handshake by which a TAG or ANCHOR
// finds the PAN master and obtains a short address, a PANID and a slot.
//
// A discovering node calls Start once and then Blink until the instance is
// valid. The PAN master calls Listen. Completion is driven by the transceiver
// events delivered to the Instance through the transport chain.
//
// Two binary semaphores serialise the work: the transaction semaphore owns
// the transceiver for one outstanding transmit or receive, the completion
// semaphore spans a whole discovery session and is only released by a
// response addressed to this node.
package pan

import (
	"sync"

	"go.uber.org/zap"

	proto "github.com/ystepanoff/uwbpan/protocol"
	"github.com/ystepanoff/uwbpan/sched"
	"github.com/ystepanoff/uwbpan/transport"
)

// Config carries the discovery timing.
type Config struct {
	// TxHoldoffDelay is extra guard time added to the response wait, in µs.
	TxHoldoffDelay uint16
	// RxTimeoutPeriod is the base wait for a response, in µs.
	RxTimeoutPeriod uint16
	// Period is the discovery epoch in hardware time units.
	Period uint32
}

func DefaultConfig() Config {
	return Config{
		TxHoldoffDelay:  proto.DefaultTxHoldoffDelay,
		RxTimeoutPeriod: proto.DefaultRxTimeoutPeriod,
		Period:          proto.DefaultPeriod,
	}
}

// Status reports the instance state and the outcome of the last operation.
type Status struct {
	Initialized bool
	SelfOwned   bool
	Valid       bool

	StartTxError bool
	StartRxError bool
	RxTimeout    bool
	RxError      bool
	TxError      bool
}

// Received is a copy of the last frame claimed by the receive handler, taken
// before the deferred hook is queued.
type Received struct {
	Frame   proto.Frame
	Kind    proto.FrameKind
	Length  int
	Count   uint64
	Matched bool
}

// Instance is the per-radio protocol state.
type Instance struct {
	dev   transport.Transceiver
	log   *zap.Logger
	queue *sched.EventQueue

	sem     *sched.Semaphore
	semDone *sched.Semaphore

	// mu guards the fields below for readers outside the transaction.
	mu          sync.Mutex
	pool        *proto.Pool
	poolSize    int
	cfg         Config
	status      Status
	identity    proto.Identity
	last        Received
	postprocess *sched.Event
}

// Option customises an Instance at Init.
type Option func(*Instance)

func WithLogger(log *zap.Logger) Option {
	return func(p *Instance) {
		if log != nil {
			p.log = log
		}
	}
}

// WithQueue runs the deferred hook on q instead of sched.Default().
func WithQueue(q *sched.EventQueue) Option {
	return func(p *Instance) {
		if q != nil {
			p.queue = q
		}
	}
}

func WithPoolSize(n int) Option {
	return func(p *Instance) { p.poolSize = n }
}

// WithPostprocess replaces the default diagnostic hook. A nil fn disables it.
func WithPostprocess(fn func(*Instance)) Option {
	return func(p *Instance) { p.setPostprocessLocked(fn) }
}

// New allocates an instance owned by the PAN core and initialises it on dev.
func New(dev transport.Transceiver, cfg Config, opts ...Option) *Instance {
	p := &Instance{}
	Init(p, dev, cfg, opts...)
	p.mu.Lock()
	p.status.SelfOwned = true
	p.mu.Unlock()
	return p
}

// Init initialises an externally owned instance p on dev and appends its
// handlers to the transceiver chain. p may be reused after Free.
func Init(p *Instance, dev transport.Transceiver, cfg Config, opts ...Option) *Instance {
	if p == nil || dev == nil {
		panic(proto.ErrNotInitialized)
	}

	p.mu.Lock()
	p.dev = dev
	p.cfg = cfg
	p.log = zap.NewNop()
	p.queue = sched.Default()
	p.poolSize = proto.DefaultPoolSize
	p.status = Status{}
	p.identity = proto.Identity{}
	p.last = Received{}
	p.setPostprocessLocked(defaultPostprocess)
	for _, opt := range opts {
		opt(p)
	}
	if p.pool == nil || p.pool.Len() != p.poolSize {
		p.pool = proto.NewPool(p.poolSize)
	}
	p.sem = sched.NewSemaphore(1)
	p.semDone = sched.NewSemaphore(1)
	p.pool.Current().TransmissionTimestamp = dev.ReadSysTime()
	p.status.Initialized = true
	p.mu.Unlock()

	dev.AppendHandler(p)

	p.log.Info("pan: init",
		zap.Uint64("utime", sched.Uptime()),
		zap.String("UUID", proto.UUID(dev.LongAddress())),
		zap.Int("nframes", p.pool.Len()),
	)
	return p
}

// Free detaches the instance from the transceiver chain. A self-owned
// instance drops its buffers; an externally owned one only clears the
// initialized flag so that Init can be called again.
func (p *Instance) Free() {
	p.mustBeInitialized()
	p.dev.RemoveHandler(transport.IDPAN)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Initialized = false
	if p.status.SelfOwned {
		p.pool = nil
		p.postprocess = nil
	}
}

// Reconfigure replaces the timing once no transaction is outstanding.
func (p *Instance) Reconfigure(cfg Config) {
	p.mustBeInitialized()
	p.sem.Pend()
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	p.sem.Release()
}

// SetPostprocess registers the hook run on the event queue after every
// claimed receive. A nil fn disables it.
func (p *Instance) SetPostprocess(fn func(*Instance)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setPostprocessLocked(fn)
}

func (p *Instance) setPostprocessLocked(fn func(*Instance)) {
	if fn == nil {
		p.postprocess = nil
		return
	}
	p.postprocess = sched.NewEvent(func(ev *sched.Event) {
		fn(ev.Arg.(*Instance))
	}, p)
}

func (p *Instance) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Instance) Valid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Valid
}

// Identity returns the allocation received from the PAN master.
func (p *Instance) Identity() proto.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

func (p *Instance) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Index returns the pool rotation index. The pool accessors panic with
// ErrNotInitialized after Free.
func (p *Instance) Index() uint32 {
	p.mustBeInitialized()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.Index()
}

// CurrentFrame returns a copy of the frame at the rotation index.
func (p *Instance) CurrentFrame() proto.Frame {
	p.mustBeInitialized()
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.pool.Current()
}

// frameAt returns a copy of pool slot i.
func (p *Instance) frameAt(i int) proto.Frame {
	p.mustBeInitialized()
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.pool.At(i)
}

func (p *Instance) PoolSize() int {
	p.mustBeInitialized()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.Len()
}

func (p *Instance) LastReceived() Received {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// LongAddress is the EUI-64 of the underlying transceiver.
func (p *Instance) LongAddress() uint64 { return p.dev.LongAddress() }

// SemaphoreCount is 1 when the transceiver is free.
func (p *Instance) SemaphoreCount() int { return p.sem.Count() }

// SessionCount is 1 when no discovery session is in progress.
func (p *Instance) SessionCount() int { return p.semDone.Count() }

func (p *Instance) mustBeInitialized() {
	if p == nil {
		panic(proto.ErrNotInitialized)
	}
	p.mu.Lock()
	ok := p.status.Initialized
	p.mu.Unlock()
	if !ok {
		panic(proto.ErrNotInitialized)
	}
}
