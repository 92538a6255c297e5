package jobs

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestParallelForCoverage(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	tests := []struct {
		name  string
		n     int
		batch int
	}{
		{"even", 1000, 10},
		{"uneven tail", 1003, 64},
		{"single batch", 5, 100},
		{"auto batch", 777, 0},
		{"batch of one", 37, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			var calls atomic.Int32
			p.ParallelFor(tt.n, tt.batch, func(start, end int) {
				calls.Add(1)
				if tt.batch > 0 && end-start > tt.batch {
					t.Errorf("batch [%d,%d) larger than %d", start, end, tt.batch)
				}
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
			if calls.Load() == 0 {
				t.Error("fn never called")
			}
		})
	}
}

func TestParallelForEmpty(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	called := false
	p.ParallelFor(0, 8, func(start, end int) { called = true })
	if called {
		t.Error("fn called for an empty range")
	}
}

func TestParallelForUsesWorkers(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var mu sync.Mutex
	var active, peak int
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	go func() {
		started.Wait()
		close(release)
	}()

	p.ParallelFor(4, 1, func(start, end int) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()
		if start < 2 {
			started.Done()
			<-release
		}
		mu.Lock()
		active--
		mu.Unlock()
	})

	if peak < 2 {
		t.Errorf("expected at least 2 concurrent batches, peak was %d", peak)
	}
}

func TestClosedPoolRunsInline(t *testing.T) {
	p := NewPool(3)
	p.Close()
	p.Close()

	sum := 0
	p.ParallelFor(10, 2, func(start, end int) {
		for i := start; i < end; i++ {
			sum += i
		}
	})
	if sum != 45 {
		t.Errorf("sum = %d, want 45", sum)
	}
}
