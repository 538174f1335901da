// Package poller keeps proxy data fresh on a fixed interval. A poller whose
// inputs are incomplete never issues a request.
package poller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// inflight coalesces concurrent fetches that share a key across pollers.
var inflight singleflight.Group

// State is a snapshot of a poller's data.
type State[T any] struct {
	Data      T
	Err       error
	IsLoading bool
	IsError   bool
}

// Fetcher loads one value.
type Fetcher[T any] func(ctx context.Context) (T, error)

type Poller[T any] struct {
	key      string
	ready    bool
	interval time.Duration
	fetch    Fetcher[T]

	mu       sync.RWMutex
	state    State[T]
	onUpdate func(State[T])
}

// New builds a poller. When ready is false Refresh and Run are no-ops. An
// interval of zero fetches once.
func New[T any](key string, ready bool, interval time.Duration, fetch Fetcher[T]) *Poller[T] {
	return &Poller[T]{
		key:      key,
		ready:    ready,
		interval: interval,
		fetch:    fetch,
	}
}

// OnUpdate registers fn to receive every state change. Call before Run.
func (p *Poller[T]) OnUpdate(fn func(State[T])) *Poller[T] {
	p.onUpdate = fn
	return p
}

func (p *Poller[T]) Ready() bool {
	return p.ready
}

func (p *Poller[T]) State() State[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Refresh fetches once and returns the new state. Data from the last
// successful fetch is kept when a refresh fails.
//
// A coalesced fetch runs detached from any one caller's cancellation, so it is
// bounded by the fetcher's own timeout. A caller whose ctx ends stops waiting
// and records ctx.Err() without failing the other waiters.
func (p *Poller[T]) Refresh(ctx context.Context) State[T] {
	if !p.ready {
		return p.State()
	}

	p.update(func(s *State[T]) { s.IsLoading = true })

	shared := context.WithoutCancel(ctx)
	ch := inflight.DoChan(p.key, func() (interface{}, error) {
		return p.fetch(shared)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}

	return p.update(func(s *State[T]) {
		s.IsLoading = false
		if res.Err != nil {
			s.Err = res.Err
			s.IsError = true
			return
		}
		s.Data = res.Val.(T)
		s.Err = nil
		s.IsError = false
	})
}

// Run refreshes immediately and then on every tick until ctx is done.
func (p *Poller[T]) Run(ctx context.Context) {
	if !p.ready {
		return
	}

	p.Refresh(ctx)
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

func (p *Poller[T]) update(fn func(*State[T])) State[T] {
	p.mu.Lock()
	fn(&p.state)
	snapshot := p.state
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(snapshot)
	}
	return snapshot
}
