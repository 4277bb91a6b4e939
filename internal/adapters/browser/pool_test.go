package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fairprice/internal/domain"
)

// countingSpawner tracks how many sessions were ever created and how many are
// currently alive, via each session's cancel func.
type countingSpawner struct {
	mu       sync.Mutex
	spawned  int
	alive    int
	failNext bool
}

func (c *countingSpawner) spawn(parent context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		c.failNext = false
		return nil, nil, errors.New("browser refused to start")
	}
	c.spawned++
	c.alive++
	ctx, cancel := context.WithCancel(parent)
	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			c.mu.Lock()
			c.alive--
			c.mu.Unlock()
		})
		cancel()
	}, nil
}

func (c *countingSpawner) counts() (spawned, alive int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawned, c.alive
}

func TestPool_HealthyReleaseReuses(t *testing.T) {
	cs := &countingSpawner{}
	p := NewWithSpawner(2, time.Second, cs.spawn)
	defer p.Close()

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	id := s1.ID
	p.Release(s1, true)

	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	defer p.Release(s2, true)

	if s2.ID != id {
		t.Fatalf("healthy release must hand back the same session: got %d, want %d", s2.ID, id)
	}
	if spawned, _ := cs.counts(); spawned != 1 {
		t.Fatalf("one warm session should serve both leases, spawned %d", spawned)
	}
}

func TestPool_UnhealthyReleaseRespawnsWithinCap(t *testing.T) {
	cs := &countingSpawner{}
	p := NewWithSpawner(1, time.Second, cs.spawn)
	defer p.Close()

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(s1, false)

	if _, alive := cs.counts(); alive != 0 {
		t.Fatalf("unhealthy release must destroy the session, %d still alive", alive)
	}

	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after destroy: %v", err)
	}
	defer p.Release(s2, true)

	if s2.ID == s1.ID {
		t.Fatalf("expected a fresh session after destroying %d", s1.ID)
	}
	if spawned, alive := cs.counts(); spawned != 2 || alive != 1 {
		t.Fatalf("want 2 spawned / 1 alive, got %d / %d", spawned, alive)
	}
}

func TestPool_ExhaustionTimesOut(t *testing.T) {
	cs := &countingSpawner{}
	p := NewWithSpawner(1, 20*time.Millisecond, cs.spawn)
	defer p.Close()

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	_, err = p.Acquire(context.Background())
	if !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("got %v, want ErrPoolExhausted", err)
	}

	p.Release(s, true)
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	p.Release(s2, true)
}

func TestPool_AcquireHonorsCallerContext(t *testing.T) {
	cs := &countingSpawner{}
	p := NewWithSpawner(1, time.Hour, cs.spawn)
	defer p.Close()

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer p.Release(s, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("canceled acquire did not return")
	}
}

func TestPool_SpawnFailureFreesSlot(t *testing.T) {
	cs := &countingSpawner{failNext: true}
	p := NewWithSpawner(1, 50*time.Millisecond, cs.spawn)
	defer p.Close()

	if _, err := p.Acquire(context.Background()); err == nil {
		t.Fatalf("expected spawn error")
	}

	// The slot must come back: the next acquire spawns, not times out.
	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after spawn failure: %v", err)
	}
	p.Release(s, true)
}

func TestPool_ZeroTimeoutGetsDefault(t *testing.T) {
	cs := &countingSpawner{}
	p := NewWithSpawner(1, 0, cs.spawn)
	defer p.Close()

	// A free slot must win over an unset timeout, never a spurious
	// ErrPoolExhausted from a zero-duration timer.
	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire with default timeout: %v", err)
	}
	p.Release(s, true)
}

func TestPool_NoLeakUnderChurn(t *testing.T) {
	const size = 3
	cs := &countingSpawner{}
	p := NewWithSpawner(size, time.Second, cs.spawn)

	var wg sync.WaitGroup
	var iter atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s, err := p.Acquire(context.Background())
				if err != nil {
					t.Errorf("acquire: %v", err)
					return
				}
				// Every third lease ends unhealthy.
				p.Release(s, iter.Add(1)%3 != 0)
			}
		}()
	}
	wg.Wait()

	if _, alive := cs.counts(); alive > size {
		t.Fatalf("%d sessions alive, cap is %d", alive, size)
	}

	p.Close()
	if _, alive := cs.counts(); alive != 0 {
		t.Fatalf("%d sessions survived Close", alive)
	}
}
