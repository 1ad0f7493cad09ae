// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"errors"
	"net"
)

// A Remote is the endpoint of a session that accepts connections from
// controllers, and reports the key presses, key releases and data they send.
//
// A remote accepts any number of concurrent connections, unless a limit is
// set with SetMaxConnections. Messages from all connections are delivered to
// the same callbacks.
type Remote struct {
	*Endpoint
	a *acceptor
}

// NewRemote constructs the remote endpoint for session on nw. Its identity
// is derived from the session, so at most one remote per session can be
// registered with a network at a time.
//
// NewRemote reports a *ValidationError if session contains characters that
// are not allowed in an identity, and a *ConfigError if cfg has no traversal
// credentials.
func NewRemote(nw Network, cfg *Config, session string) (*Remote, error) {
	id, err := RemoteID(session)
	if err != nil {
		return nil, err
	}
	a := &acceptor{max: -1}
	e, err := newEndpoint(nw, cfg, id, a)
	if err != nil {
		return nil, err
	}
	return &Remote{Endpoint: e, a: a}, nil
}

// SetMaxConnections sets the maximum number of connections the remote will
// hold at once. A value of -1 (or any negative value) means no limit.
// Connections already accepted are not closed when the limit is lowered.
func (r *Remote) SetMaxConnections(n int) {
	r.μ.Lock()
	defer r.μ.Unlock()
	r.a.max = max(n, -1)
}

// MaxConnections reports the current connection limit, or -1 if the number
// of connections is not limited.
func (r *Remote) MaxConnections() int {
	r.μ.Lock()
	defer r.μ.Unlock()
	return r.a.max
}

// OnPress registers f to be called with the key of each press message.
func (r *Remote) OnPress(f func(key string)) Subscription {
	r.μ.Lock()
	defer r.μ.Unlock()
	return r.a.onPress.set(f, r.μ.Lock, r.μ.Unlock)
}

// OnRelease registers f to be called with the key of each release message.
func (r *Remote) OnRelease(f func(key string)) Subscription {
	r.μ.Lock()
	defer r.μ.Unlock()
	return r.a.onRelease.set(f, r.μ.Lock, r.μ.Unlock)
}

// acceptor is the role of a remote.
type acceptor struct {
	// Fields are protected by the endpoint lock.
	max       int
	onPress   slot[string]
	onRelease slot[string]
}

func (a *acceptor) open(e *Endpoint) {
	e.μ.Lock()
	defer e.μ.Unlock()
	if e.closed {
		return
	}
	node := e.node
	e.tasks.Go(func() error {
		for {
			conn, err := node.Accept(e.ctx)
			if err != nil {
				if e.ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
					e.fail(err)
				}
				return nil
			}
			a.admit(e, conn)
		}
	})
}

// admit registers conn, unless the remote already holds the maximum number
// of connections. A refused connection is closed and never reported.
func (a *acceptor) admit(e *Endpoint, conn Conn) {
	e.μ.Lock()
	if a.max >= 0 && len(e.conns) >= a.max {
		e.μ.Unlock()
		rootMetrics.connReject.Add(1)
		e.log.Info("connection refused", "conn", conn.ID(), "peer", conn.Peer(), "max", a.max)
		conn.Close()
		return
	}
	ok := e.addConnLocked(conn)
	e.μ.Unlock()
	if !ok {
		conn.Close()
		return
	}
	rootMetrics.connAccept.Add(1)
}

// The connection callbacks of a remote report the identity of the peer.
func (*acceptor) openLabel(_ *Endpoint, c Conn) string { return c.Peer() }
func (*acceptor) closeLabel(c Conn) string             { return c.Peer() }

func (a *acceptor) routeKeyLocked(m *Message) (func(), bool) {
	if m.Type == KindPress {
		return a.onPress.bind(m.Key), true
	}
	return a.onRelease.bind(m.Key), true
}

func (*acceptor) stopLocked() {}
