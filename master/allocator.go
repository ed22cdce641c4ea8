package master

import (
	"errors"
	"fmt"
	"sync"
	"time"

	proto "github.com/ystepanoff/uwbpan/protocol"
)

// Allocator hands out identities. A node that blinks again gets the
// allocation it already has; new nodes get the next short address and the
// next free slot.
type Allocator struct {
	reg       Registry
	panID     uint16
	shortBase uint16
	slotCount int
	now       func() time.Time

	mu        sync.Mutex
	nextShort uint16
	nextSlot  int
	used      map[uint16]bool
}

// NewAllocator seeds the allocator from the allocations already in reg.
func NewAllocator(reg Registry, panID, shortBase uint16, slotCount int) (*Allocator, error) {
	if slotCount < 1 {
		return nil, fmt.Errorf("allocator: slot count %d", slotCount)
	}
	a := &Allocator{
		reg:       reg,
		panID:     panID,
		shortBase: shortBase,
		slotCount: slotCount,
		now:       time.Now,
		nextShort: shortBase,
		used:      make(map[uint16]bool),
	}

	existing, err := reg.List()
	if err != nil {
		return nil, fmt.Errorf("allocator: %w", err)
	}
	for _, al := range existing {
		if int(al.SlotID) < slotCount {
			a.used[al.SlotID] = true
		}
		if al.ShortAddress >= a.nextShort {
			a.nextShort = al.ShortAddress + 1
			a.nextSlot = (int(al.SlotID) + 1) % slotCount
		}
	}
	return a, nil
}

// Allocate returns the allocation of longAddress, creating one if needed.
func (a *Allocator) Allocate(longAddress uint64) (Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, err := a.reg.Lookup(longAddress)
	if err == nil {
		return al, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Allocation{}, fmt.Errorf("allocator: %w", err)
	}

	slot, ok := a.freeSlot()
	if !ok {
		return Allocation{}, proto.ErrPoolExhausted
	}
	al = Allocation{
		LongAddress:  longAddress,
		ShortAddress: a.nextShort,
		PANID:        a.panID,
		SlotID:       slot,
		AllocatedAt:  a.now(),
	}
	if err := a.reg.Save(al); err != nil {
		return Allocation{}, fmt.Errorf("allocator: %w", err)
	}
	a.used[slot] = true
	a.nextShort++
	a.nextSlot = (int(slot) + 1) % a.slotCount
	return al, nil
}

// freeSlot walks the slots round-robin from the one after the last given.
func (a *Allocator) freeSlot() (uint16, bool) {
	for i := 0; i < a.slotCount; i++ {
		s := uint16((a.nextSlot + i) % a.slotCount)
		if !a.used[s] {
			return s, true
		}
	}
	return 0, false
}

// PANID is the network id written into every allocation.
func (a *Allocator) PANID() uint16 { return a.panID }

// Free reports how many slots are still available.
func (a *Allocator) Free() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slotCount - len(a.used)
}
