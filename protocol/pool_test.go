package protocol

import "testing"

func TestPoolCycles(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		p := NewPool(n)
		seen := make(map[*Frame]int)
		prev := p.Index()
		for i := 0; i < 3*n; i++ {
			f := p.Current()
			if _, ok := seen[f]; !ok && i >= n {
				t.Fatalf("pool(%d): new frame after a full cycle at step %d", n, i)
			}
			if i < n {
				if _, ok := seen[f]; ok {
					t.Fatalf("pool(%d): frame repeated before the cycle completed at step %d", n, i)
				}
			}
			seen[f]++

			p.Advance()
			if p.Index() != prev+1 {
				t.Fatalf("pool(%d): index = %d, want %d", n, p.Index(), prev+1)
			}
			prev = p.Index()
		}
		for f, c := range seen {
			if c != 3 {
				t.Errorf("pool(%d): frame %p visited %d times, want 3", n, f, c)
			}
		}
	}
}

func TestPoolDefaults(t *testing.T) {
	p := NewPool(0)
	if p.Len() != DefaultPoolSize {
		t.Errorf("Len() = %d, want %d", p.Len(), DefaultPoolSize)
	}
	for i := 0; i < p.Len(); i++ {
		if p.At(i).FrameControl != FCtrlBlinkTag64 {
			t.Errorf("frame %d FCtrl = %#x, want %#x", i, p.At(i).FrameControl, FCtrlBlinkTag64)
		}
	}
}

func TestPoolReset(t *testing.T) {
	p := NewPool(2)
	p.Advance()
	p.Advance()
	p.Advance()
	p.Reset(1)
	if p.Index() != 1 {
		t.Errorf("Index() = %d, want 1", p.Index())
	}
	if p.Current() != p.At(1) {
		t.Errorf("Current() is not slot 1 after Reset(1)")
	}
}
