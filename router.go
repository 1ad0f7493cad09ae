// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

// routeLocked returns the callback to invoke for an inbound message, which
// is nil if no subscriber is registered for it. It reports false if the
// message is of a kind this endpoint does not handle, in which case the
// message is discarded.
//
// Unknown kinds are not an error: a newer peer may send kinds that this
// endpoint does not yet understand.
func (e *Endpoint) routeLocked(m *Message) (func(), bool) {
	switch m.Type {
	case KindData:
		return e.onData.bind(m.Object), true
	case KindPress, KindRelease:
		return e.role.routeKeyLocked(m)
	default:
		return nil, false
	}
}
