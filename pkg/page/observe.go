package page

import (
	"sync"
)

// Observers is a registry of DOM mutation callbacks. Documents own one and
// call Notify after every structural change; components attach with Subscribe
// and must Close the returned Subscription when they are done.
type Observers struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func()
}

// Subscription is a handle to a registered callback.
type Subscription struct {
	owner *Observers
	id    uint64
	once  sync.Once
}

// Subscribe registers fn. fn is called from whatever goroutine delivers the
// mutation and must not block.
func (o *Observers) Subscribe(fn func()) *Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.subs == nil {
		o.subs = make(map[uint64]func())
	}
	o.next++
	o.subs[o.next] = fn

	return &Subscription{owner: o, id: o.next}
}

// Notify calls every registered callback. Callbacks are copied out before
// being invoked so they may subscribe or close without deadlocking.
func (o *Observers) Notify() {
	o.mu.Lock()
	fns := make([]func(), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of active subscriptions.
func (o *Observers) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Close detaches the callback. Safe to call multiple times.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.owner.mu.Lock()
		delete(s.owner.subs, s.id)
		s.owner.mu.Unlock()
	})
}
