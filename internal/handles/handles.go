package handles

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"portfolio-site-go/internal/analytics"
	"portfolio-site-go/internal/models"
	"portfolio-site-go/internal/store"
)

// Identity resolves the user behind a request context.
type Identity interface {
	CurrentUser(ctx context.Context) models.Session
}

// Messaging delivers web push payloads to stored subscriptions.
type Messaging interface {
	PublicKey() string
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) error
}

// Set is the shared group of remote service handles. It is read-only once
// published by a Provider.
type Set struct {
	Identity  Identity
	Store     store.Store
	Messaging Messaging
	// Analytics is nil outside production or when unsupported.
	Analytics analytics.Logger
}

type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var ErrNotReady = errors.New("handles not initialized")

type InitFunc func(ctx context.Context) (*Set, error)

// attempt is one run of the InitFunc. Its fields are written before done
// is closed.
type attempt struct {
	done chan struct{}
	set  *Set
	err  error
}

// Provider constructs a Set asynchronously and hands the same pointer to
// every caller afterwards. A failed construction is retried by the next
// Start or Get; a successful one is never repeated.
type Provider struct {
	init  InitFunc
	mu    sync.Mutex
	cur   *attempt
	state atomic.Int32
}

func NewProvider(init InitFunc) *Provider {
	return &Provider{init: init}
}

// Start kicks off construction if none is running or done. It does not block.
func (p *Provider) Start(ctx context.Context) {
	p.begin(ctx)
}

func (p *Provider) begin(ctx context.Context) *attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != nil && p.State() != StateFailed {
		return p.cur
	}

	a := &attempt{done: make(chan struct{})}
	p.cur = a
	p.state.Store(int32(StateInitializing))
	ctx = context.WithoutCancel(ctx)
	go func() {
		set, err := p.init(ctx)
		if err == nil && set == nil {
			err = ErrNotReady
		}
		p.mu.Lock()
		a.set, a.err = set, err
		if err != nil {
			p.state.Store(int32(StateFailed))
		} else {
			p.state.Store(int32(StateReady))
		}
		p.mu.Unlock()
		close(a.done)
	}()
	return a
}

// Get starts construction if needed and waits for it.
func (p *Provider) Get(ctx context.Context) (*Set, error) {
	a := p.begin(ctx)
	select {
	case <-a.done:
		return a.set, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the published set without waiting, or nil.
func (p *Provider) Peek() *Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() != StateReady {
		return nil
	}
	return p.cur.set
}

func (p *Provider) State() State {
	return State(p.state.Load())
}

// Initialized reports whether handles are constructed and a store exists.
func (p *Provider) Initialized() bool {
	set := p.Peek()
	return set != nil && set.Store != nil
}

// Ready is Initialized plus an identified user.
func (p *Provider) Ready(s models.Session) bool {
	return p.Initialized() && s.Identified()
}
