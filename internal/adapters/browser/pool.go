package browser

import (
	"context"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"fairprice/internal/adapters/observability"
	"fairprice/internal/domain"
)

// Session is a leased browsing handle. The holder owns it exclusively until
// Release; the context is a live chromedp tab that survives across Run calls.
type Session struct {
	ID     int
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the session's chromedp context. Derive per-operation
// timeouts from it with context.WithTimeout; canceling a derived context does
// not tear the session down.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) destroy() { s.cancel() }

// SpawnFunc creates one fresh session under the pool's parent context.
type SpawnFunc func(parent context.Context) (context.Context, context.CancelFunc, error)

// Pool is a fixed-size set of reusable browser sessions. Slots are tokens in a
// buffered channel: a *Session is a warm, reusable session, nil is a free slot
// whose session gets spawned lazily on the next acquisition. Token count is
// constant, so the pool can never grow past its configured size and releases
// can never leak capacity.
type Pool struct {
	slots          chan *Session
	spawn          SpawnFunc
	parent         context.Context
	parentCancel   context.CancelFunc
	acquireTimeout time.Duration

	mu     sync.Mutex
	nextID int
	closed bool
}

type Options struct {
	Size           int
	AcquireTimeout time.Duration
	ChromeBin      string
}

// New builds a chromedp-backed pool. The underlying Chrome process is started
// lazily by chromedp on the first Run against a session.
func New(opts Options) *Pool {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin := findChromeBinary(opts.ChromeBin); bin != "" {
		flags = append(flags, chromedp.ExecPath(bin))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), flags...)

	spawn := func(parent context.Context) (context.Context, context.CancelFunc, error) {
		ctx, cancel := chromedp.NewContext(parent, chromedp.WithLogf(func(string, ...interface{}) {}))
		return ctx, cancel, nil
	}
	return newPool(opts.Size, opts.AcquireTimeout, allocCtx, cancelAlloc, spawn)
}

// NewWithSpawner builds a pool around a custom session factory. Used by tests
// to drive the lifecycle without a real browser.
func NewWithSpawner(size int, acquireTimeout time.Duration, spawn SpawnFunc) *Pool {
	parent, cancel := context.WithCancel(context.Background())
	return newPool(size, acquireTimeout, parent, cancel, spawn)
}

func newPool(size int, acquireTimeout time.Duration, parent context.Context, parentCancel context.CancelFunc, spawn SpawnFunc) *Pool {
	if size < 1 {
		size = 1
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 10 * time.Second
	}
	p := &Pool{
		slots:          make(chan *Session, size),
		spawn:          spawn,
		parent:         parent,
		parentCancel:   parentCancel,
		acquireTimeout: acquireTimeout,
	}
	for i := 0; i < size; i++ {
		p.slots <- nil // all slots free, sessions spawned on demand
	}
	return p
}

// Acquire blocks until a session is available or the acquisition timeout
// elapses. Returns domain.ErrPoolExhausted on timeout; the caller's context
// cancellation propagates as its own error.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case s := <-p.slots:
		if s != nil {
			observability.ObservePool("ok")
			observability.PoolInUse.Inc()
			return s, nil
		}
		ns, err := p.spawnSession()
		if err != nil {
			p.slots <- nil // give the slot back before failing
			observability.ObservePool("spawn_error")
			return nil, err
		}
		observability.ObservePool("spawned")
		observability.PoolInUse.Inc()
		return ns, nil
	case <-ctx.Done():
		observability.ObservePool("canceled")
		return nil, ctx.Err()
	case <-timer.C:
		observability.ObservePool("timeout")
		return nil, domain.ErrPoolExhausted
	}
}

// Release returns the lease. An unhealthy session is destroyed and its slot
// freed; the replacement is spawned lazily by a later Acquire.
func (p *Pool) Release(s *Session, healthy bool) {
	if s == nil {
		return
	}
	observability.PoolInUse.Dec()
	if !healthy {
		log.Debug().Int("session", s.ID).Msg("destroying unhealthy browser session")
		s.destroy()
		p.slots <- nil
		return
	}
	p.slots <- s
}

// Close tears down every idle session and the shared allocator. Leased
// sessions die with the allocator context.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case s := <-p.slots:
			if s != nil {
				s.destroy()
			}
		default:
			p.parentCancel()
			return
		}
	}
}

func (p *Pool) spawnSession() (*Session, error) {
	ctx, cancel, err := p.spawn(p.parent)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()
	log.Debug().Int("session", id).Msg("spawned browser session")
	return &Session{ID: id, ctx: ctx, cancel: cancel}, nil
}

func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
