package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
)

// Subscriber is a Provider that also reports auth-state changes
type Subscriber interface {
	Provider
	OnAuthStateChange(fn func(identity.Event)) (unsubscribe func())
}

// Resolver keeps a State live for one tab. It is the only writer of that
// state: the initial fetch and every later notification go through it, and
// a fetch that lands after a newer notification is dropped.
type Resolver struct {
	client   Subscriber
	log      *slog.Logger
	onChange func(State)

	mu          sync.Mutex
	state       State
	gen         uint64
	started     bool
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewResolver creates a resolver in the indeterminate state. onChange, if
// set, is called with every new state while the resolver's lock is held,
// so it must not block or call back into the resolver.
func NewResolver(client Subscriber, log *slog.Logger, onChange func(State)) *Resolver {
	return &Resolver{
		client:   client,
		log:      log,
		onChange: onChange,
		state:    Indeterminate(),
	}
}

// Start subscribes to auth-state changes and issues the initial session
// fetch in the background. Calling Start twice or after Close does nothing.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.closed {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	unsubscribe := r.client.OnAuthStateChange(r.handle)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		unsubscribe()
		return
	}
	r.unsubscribe = unsubscribe
	r.gen++
	r.fetchLocked(r.gen)
}

// State returns the current state
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels the subscription and any in-flight fetch. No state is
// written once Close has returned. It is safe to call more than once.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unsubscribe, cancel := r.unsubscribe, r.cancel
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

func (r *Resolver) handle(ev identity.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.gen++

	if ev.Type == identity.EventSignedOut {
		r.setLocked(Anonymous())
		return
	}
	if ev.Session != nil {
		if next, ok := FromSession(ev.Session); ok {
			r.setLocked(next)
			return
		}
	}
	r.fetchLocked(r.gen)
}

func (r *Resolver) fetchLocked(gen uint64) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		next := Resolve(r.ctx, r.client, r.log)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || gen != r.gen {
			r.log.Debug("dropping stale session fetch", "generation", gen)
			return
		}
		r.setLocked(next)
	}()
}

func (r *Resolver) setLocked(next State) {
	r.state = next
	if r.onChange != nil {
		r.onChange(next)
	}
}
