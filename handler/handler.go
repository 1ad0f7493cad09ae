// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package handler provides adapters from functions with typed signatures to
// the callback types of trinn endpoints.
//
// Data objects are decoded from JSON. A parameter of type json.RawMessage
// receives the object unmodified.
package handler

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/creachadair/trinn"
)

// Object adapts a function f that accepts a value of type T to a data
// callback, for use with the OnData method of an endpoint. Each data object
// is decoded into a fresh T before f is called. If decoding fails, f is not
// called, and the error is passed to onError if it is non-nil.
//
// Object panics if f == nil.
func Object[T any](f func(T), onError func(error)) func(json.RawMessage) {
	if f == nil {
		panic("handler: nil object function")
	}
	return func(obj json.RawMessage) {
		var v T
		if err := unmarshal(obj, &v); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		f(v)
	}
}

// unmarshal decodes a data object into v. An empty object leaves v at its
// zero value.
func unmarshal(data []byte, v any) error {
	if raw, ok := v.(*json.RawMessage); ok {
		*raw = append(json.RawMessage(nil), data...)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cannot unmarshal into %T: %w", v, err)
	}
	return nil
}

// Keys maps key names to actions. The action for a key is called with true
// when the key is pressed and false when it is released.
type Keys map[string]func(down bool)

// Press returns a callback for the OnPress method of a remote. Keys without
// an action are passed to other, if it is non-nil.
func (k Keys) Press(other func(key string)) func(key string) { return k.dispatch(true, other) }

// Release returns a callback for the OnRelease method of a remote. Keys
// without an action are passed to other, if it is non-nil.
func (k Keys) Release(other func(key string)) func(key string) { return k.dispatch(false, other) }

func (k Keys) dispatch(down bool, other func(string)) func(string) {
	return func(key string) {
		if f, ok := k[key]; ok {
			f(down)
		} else if other != nil {
			other(key)
		}
	}
}

// Names returns the names of the keys in k in lexicographic order.
func (k Keys) Names() []string {
	out := make([]string, 0, len(k))
	for name := range k {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Bind registers the actions of k as the press and release callbacks of r,
// replacing any callbacks previously registered. Keys without an action are
// passed to other, if it is non-nil. Bind returns a function that cancels
// both registrations.
func (k Keys) Bind(r *trinn.Remote, other func(key string)) (cancel func()) {
	ps := r.OnPress(k.Press(other))
	rs := r.OnRelease(k.Release(other))
	return func() { ps.Cancel(); rs.Cancel() }
}
