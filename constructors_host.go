//go:build !tinygo && !baremetal

// This file is built only for non-embedded targets (host-based simulation).
package uwbpan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ystepanoff/uwbpan/config"
	"github.com/ystepanoff/uwbpan/driver/stub"
	"github.com/ystepanoff/uwbpan/master"
	"github.com/ystepanoff/uwbpan/pan"
)

// NewAir returns an empty simulated medium.
func NewAir(log *zap.Logger) *stub.Air { return stub.NewAir(log) }

// NewTag attaches a stub transceiver with address long (zero picks a random
// one) to air and initialises a PAN instance on it.
func NewTag(air *stub.Air, long uint64, cfg Config, opts ...pan.Option) (*Instance, *stub.Driver) {
	dev := stub.New(air, long)
	return pan.New(dev, cfg, opts...), dev
}

// NewCoordinator attaches a PAN master to air.
func NewCoordinator(air *stub.Air, long uint64, alloc *master.Allocator, opts ...master.Option) (*Coordinator, *stub.Driver) {
	dev := stub.New(air, long)
	return master.NewCoordinator(dev, alloc, opts...), dev
}

// Result is the outcome of one simulated tag.
type Result struct {
	LongAddress uint64
	Identity    Identity
	Err         error
}

// Simulate runs one coordinator and cfg.Simulation.Tags tags on a fresh air.
// Tags discover one after the other; allocations go to the registry named in
// cfg, or to memory when none is.
func Simulate(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	reg, err := OpenRegistry(cfg.Coordinator.Registry)
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	alloc, err := master.NewAllocator(reg, cfg.Coordinator.PANID, cfg.Coordinator.ShortBase, cfg.Coordinator.SlotCount)
	if err != nil {
		return nil, err
	}

	air := stub.NewAir(log)
	devOpts := []stub.Option{stub.WithLogger(log), stub.WithTimeScale(cfg.Simulation.TimeScale)}
	timing := cfg.PANTiming()

	coordDev := stub.New(air, 0, devOpts...)
	defer coordDev.Close()
	coord := master.NewCoordinator(coordDev, alloc,
		master.WithLogger(log),
		master.WithWindow(cfg.Coordinator.WindowUs),
		master.WithPANConfig(timing),
	)
	defer coord.Close()

	serveCtx, stop := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() { served <- coord.Serve(serveCtx) }()

	interval := cfg.Simulation.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}

	results := make([]Result, 0, cfg.Simulation.Tags)
	for i := 0; i < cfg.Simulation.Tags && ctx.Err() == nil; i++ {
		dev := stub.New(air, 0, devOpts...)
		p := pan.New(dev, timing, pan.WithLogger(log), pan.WithPoolSize(cfg.PAN.PoolSize))
		id, err := pan.Discover(ctx, p, interval, cfg.Simulation.MaxAttempts)
		results = append(results, Result{LongAddress: dev.LongAddress(), Identity: id, Err: err})
		p.Free()
		dev.Close()
	}

	stop()
	if err := <-served; err != nil && !errors.Is(err, context.Canceled) {
		return results, fmt.Errorf("simulate: %w", err)
	}
	return results, ctx.Err()
}

// OpenRegistry opens the SQLite registry at path, or an in-memory one when
// path is empty.
func OpenRegistry(path string) (master.Registry, error) {
	if path == "" {
		return master.NewMemoryRegistry(), nil
	}
	return master.OpenSQLiteRegistry(path)
}
