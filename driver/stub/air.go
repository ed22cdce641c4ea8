//go:build !tinygo && !baremetal

package stub

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Air is the shared medium of a simulation. A frame sent by one driver is
// delivered to every other attached driver whose receiver is enabled.
type Air struct {
	mu      sync.Mutex
	drivers []*Driver
	epoch   time.Time
	log     *zap.Logger
}

// NewAir creates an empty medium. A nil logger disables logging.
func NewAir(log *zap.Logger) *Air {
	if log == nil {
		log = zap.NewNop()
	}
	return &Air{epoch: time.Now(), log: log}
}

func (a *Air) attach(d *Driver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.drivers = append(a.drivers, d)
}

func (a *Air) detach(d *Driver) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, other := range a.drivers {
		if other == d {
			a.drivers = append(a.drivers[:i], a.drivers[i+1:]...)
			return
		}
	}
}

// Len returns the number of attached drivers.
func (a *Air) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.drivers)
}

// broadcast hands frame to every listening driver except from and returns
// how many received it.
func (a *Air) broadcast(from *Driver, frame []byte) int {
	a.mu.Lock()
	targets := make([]*Driver, 0, len(a.drivers))
	for _, d := range a.drivers {
		if d != from {
			targets = append(targets, d)
		}
	}
	a.mu.Unlock()

	heard := 0
	for _, d := range targets {
		if d.receive(frame) {
			heard++
		}
	}
	a.log.Debug("stub: frame on air",
		zap.String("from", from.uuid()),
		zap.Int("len", len(frame)),
		zap.Int("heard", heard),
	)
	return heard
}

// now returns the shared system time in ticks.
func (a *Air) now() uint64 {
	return uint64(time.Since(a.epoch)/time.Microsecond) * TicksPerMicrosecond
}
