package master

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func registries(t *testing.T) map[string]func(t *testing.T) Registry {
	return map[string]func(t *testing.T) Registry{
		"memory": func(t *testing.T) Registry { return NewMemoryRegistry() },
		"sqlite": func(t *testing.T) Registry {
			r, err := OpenSQLiteRegistry(filepath.Join(t.TempDir(), "registry.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteRegistry() error = %v", err)
			}
			return r
		},
	}
}

func TestRegistry(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	for name, open := range registries(t) {
		t.Run(name, func(t *testing.T) {
			r := open(t)
			defer r.Close()

			if _, err := r.Lookup(0x1); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Lookup() on empty registry error = %v, want %v", err, ErrNotFound)
			}

			high := Allocation{LongAddress: 0xFFEEDDCCBBAA9988, ShortAddress: 0x11, PANID: 0xDECA, SlotID: 1, AllocatedAt: at}
			low := Allocation{LongAddress: 0x0102030405060708, ShortAddress: 0x10, PANID: 0xDECA, SlotID: 0, AllocatedAt: at}
			for _, a := range []Allocation{high, low} {
				if err := r.Save(a); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			got, err := r.Lookup(high.LongAddress)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got.LongAddress != high.LongAddress || got.Identity() != high.Identity() || !got.AllocatedAt.Equal(at) {
				t.Errorf("Lookup() = %+v, want %+v", got, high)
			}

			list, err := r.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(list) != 2 || list[0].LongAddress != low.LongAddress || list[1].LongAddress != high.LongAddress {
				t.Errorf("List() = %+v, want low then high", list)
			}

			high.SlotID = 5
			if err := r.Save(high); err != nil {
				t.Fatalf("Save() replace error = %v", err)
			}
			if got, _ := r.Lookup(high.LongAddress); got.SlotID != 5 {
				t.Errorf("SlotID after replace = %d, want 5", got.SlotID)
			}
			if list, _ := r.List(); len(list) != 2 {
				t.Errorf("replace added a row: %d allocations", len(list))
			}
		})
	}
}

func TestSQLiteRegistryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	r, err := OpenSQLiteRegistry(path)
	if err != nil {
		t.Fatalf("OpenSQLiteRegistry() error = %v", err)
	}
	a := Allocation{LongAddress: 0xAB, ShortAddress: 7, PANID: 1, SlotID: 2, AllocatedAt: time.UnixMilli(42)}
	if err := r.Save(a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	r.Close()

	r, err = OpenSQLiteRegistry(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer r.Close()
	got, err := r.Lookup(0xAB)
	if err != nil {
		t.Fatalf("Lookup() after reopen error = %v", err)
	}
	if got.Identity() != a.Identity() {
		t.Errorf("Lookup() = %+v, want %+v", got, a)
	}
}

func TestMemoryRegistryClosed(t *testing.T) {
	r := NewMemoryRegistry()
	r.Close()
	if err := r.Save(Allocation{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() error = %v, want %v", err, ErrClosed)
	}
	if _, err := r.List(); !errors.Is(err, ErrClosed) {
		t.Errorf("List() error = %v, want %v", err, ErrClosed)
	}
}
