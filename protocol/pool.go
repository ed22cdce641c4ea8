package protocol

// Pool is a fixed set of frames addressed by a rotation index. A new blink
// is prepared in the next slot while the previous one may still be waiting
// for its response.
type Pool struct {
	frames []Frame
	idx    uint32
}

// NewPool returns a pool of n frames, all marked as blink frames. n < 1 is
// treated as DefaultPoolSize.
func NewPool(n int) *Pool {
	if n < 1 {
		n = DefaultPoolSize
	}
	p := &Pool{frames: make([]Frame, n)}
	for i := range p.frames {
		p.frames[i].FrameControl = FCtrlBlinkTag64
	}
	return p
}

func (p *Pool) Len() int { return len(p.frames) }

func (p *Pool) Index() uint32 { return p.idx }

// Current returns the frame at index mod Len.
func (p *Pool) Current() *Frame {
	return &p.frames[p.idx%uint32(len(p.frames))]
}

// At returns the i-th slot, independent of the rotation index.
func (p *Pool) At(i int) *Frame {
	return &p.frames[i%len(p.frames)]
}

// Advance moves to the next slot; called once per completed transmit.
func (p *Pool) Advance() { p.idx++ }

func (p *Pool) Reset(idx uint32) { p.idx = idx }
