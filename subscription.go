// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

// A Subscription is the handle returned when a callback is registered.
// Each callback slot holds at most one subscriber: registering a new callback
// replaces the previous one.
type Subscription struct {
	cancel func()
}

// Cancel removes the callback from its slot. If the callback has already
// been replaced by a later registration, Cancel has no effect. It is safe to
// call Cancel on a zero Subscription, and to call it more than once.
func (s Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// A slot holds the current subscriber for one kind of event. The caller must
// hold the endpoint lock when accessing a slot.
type slot[A any] struct {
	fn  func(A)
	gen uint64
}

// set replaces the callback in s and returns a cancellation that clears it
// again, provided it has not since been replaced. The unlock and relock
// functions bracket the cancellation with the endpoint lock.
func (s *slot[A]) set(fn func(A), lock, unlock func()) Subscription {
	s.gen++
	s.fn = fn
	gen := s.gen
	return Subscription{cancel: func() {
		lock()
		defer unlock()
		if s.gen == gen {
			s.fn = nil
		}
	}}
}

// bind returns a function that invokes the current callback with a, or nil
// if the slot is empty. The callback is captured at the time of the call, so
// an event bound before a registration is not delivered to the new callback.
func (s *slot[A]) bind(a A) func() {
	fn := s.fn
	if fn == nil {
		return nil
	}
	return func() { fn(a) }
}
