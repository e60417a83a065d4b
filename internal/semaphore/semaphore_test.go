package semaphore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSemaphore_ConcurrencyBound(t *testing.T) {
	tests := []struct {
		name string
		max  int
		jobs int
	}{
		{"serial", 1, 20},
		{"three", 3, 50},
		{"wider than jobs", 16, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sem := New(tt.max)
			var active, peak, settled atomic.Int64
			var wg sync.WaitGroup

			for i := 0; i < tt.jobs; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = Run(context.Background(), sem, func(ctx context.Context) error {
						n := active.Add(1)
						for {
							p := peak.Load()
							if n <= p || peak.CompareAndSwap(p, n) {
								break
							}
						}
						time.Sleep(time.Millisecond)
						active.Add(-1)
						return nil
					})
					settled.Add(1)
				}()
			}
			wg.Wait()

			if got := peak.Load(); got > int64(tt.max) {
				t.Errorf("peak concurrency = %d, want <= %d", got, tt.max)
			}
			if got := settled.Load(); got != int64(tt.jobs) {
				t.Errorf("settled = %d, want %d", got, tt.jobs)
			}
		})
	}
}

func TestSemaphore_FailureDoesNotBlockQueue(t *testing.T) {
	sem := New(1)
	boom := errors.New("boom")

	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Run(context.Background(), sem, func(ctx context.Context) error {
				if i%2 == 0 {
					return boom
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		if i%2 == 0 && !errors.Is(err, boom) {
			t.Errorf("job %d: err = %v, want boom", i, err)
		}
		if i%2 == 1 && err != nil {
			t.Errorf("job %d: err = %v, want nil", i, err)
		}
	}
}

func TestSemaphore_PanicReleasesSlot(t *testing.T) {
	sem := New(1)

	func() {
		defer func() { _ = recover() }()
		_ = Run(context.Background(), sem, func(ctx context.Context) error {
			panic("job panicked")
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := Do(ctx, sem, func(ctx context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Fatalf("Do after panic = (%d, %v), want (7, nil)", got, err)
	}
}

func TestSemaphore_FIFOAdmission(t *testing.T) {
	sem := New(1)
	ctx := context.Background()

	if err := sem.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = Run(ctx, sem, func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}(i)
		// Let job i enqueue before submitting job i+1.
		time.Sleep(10 * time.Millisecond)
	}

	sem.Release()
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("admission order = %v, want ascending", order)
		}
	}
}

func TestSemaphore_Unbounded(t *testing.T) {
	sem := New(Unbounded)
	if sem.Max() != Unbounded {
		t.Errorf("Max() = %d", sem.Max())
	}

	var nilSem *Semaphore
	got, err := Do(context.Background(), nilSem, func(ctx context.Context) (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("nil semaphore Do = (%q, %v)", got, err)
	}
}

func TestSemaphore_AcquireHonorsContext(t *testing.T) {
	sem := New(1)
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sem.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sem.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire err = %v, want deadline exceeded", err)
	}
}
