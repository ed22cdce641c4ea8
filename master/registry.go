// Package master is a sample PAN master: it allocates short addresses and
// slots to discovering nodes, remembers them in a registry and answers
// their blinks through a pan.Instance.
package master

import (
	"sort"
	"sync"
	"time"

	proto "github.com/ystepanoff/uwbpan/protocol"
)

// Allocation binds a node's long address to the identity it was given.
type Allocation struct {
	LongAddress  uint64    `json:"long_address" yaml:"long_address"`
	ShortAddress uint16    `json:"short_address" yaml:"short_address"`
	PANID        uint16    `json:"pan_id" yaml:"pan_id"`
	SlotID       uint16    `json:"slot_id" yaml:"slot_id"`
	AllocatedAt  time.Time `json:"allocated_at" yaml:"allocated_at"`
}

func (a Allocation) Identity() proto.Identity {
	return proto.Identity{ShortAddress: a.ShortAddress, PANID: a.PANID, SlotID: a.SlotID}
}

// Registry persists allocations.
type Registry interface {
	// Lookup returns ErrNotFound when longAddress has no allocation.
	Lookup(longAddress uint64) (Allocation, error)
	// Save inserts or replaces the allocation for a.LongAddress.
	Save(a Allocation) error
	// List returns every allocation ordered by short address.
	List() ([]Allocation, error)
	Close() error
}

// MemoryRegistry keeps allocations in a map.
type MemoryRegistry struct {
	mu     sync.RWMutex
	byAddr map[uint64]Allocation
	closed bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byAddr: make(map[uint64]Allocation)}
}

func (r *MemoryRegistry) Lookup(longAddress uint64) (Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Allocation{}, ErrClosed
	}
	a, ok := r.byAddr[longAddress]
	if !ok {
		return Allocation{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRegistry) Save(a Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.byAddr[a.LongAddress] = a
	return nil
}

func (r *MemoryRegistry) List() ([]Allocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	out := make([]Allocation, 0, len(r.byAddr))
	for _, a := range r.byAddr {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortAddress < out[j].ShortAddress })
	return out, nil
}

func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
