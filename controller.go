// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import "github.com/benbjohnson/clock"

// A Controller is an endpoint that dials the remote of its session and sends
// it key presses, key releases and data.
//
// Once its identity is registered, a controller dials the remote. If the
// remote is not yet reachable, the controller tries again after the retry
// timeout of its config, indefinitely, until it connects, StopRetrying is
// called, or it is closed. Errors other than an unreachable remote are
// reported to the error callback and are not retried.
type Controller struct {
	*Endpoint
	d *dialer
}

// NewController constructs a controller for session on nw, with a fresh
// random identity. If onUnavailable != nil, it is called each time a dial
// fails because the remote is not reachable, before the retry is scheduled.
//
// NewController reports a *ValidationError if session contains characters
// that are not allowed in an identity, and a *ConfigError if cfg has no
// traversal credentials. The controller connects asynchronously; use the
// OnStatusChange and OnConnection callbacks to observe its progress.
func NewController(nw Network, cfg *Config, session string, onUnavailable func()) (*Controller, error) {
	id, err := ControllerID(session)
	if err != nil {
		return nil, err
	}
	target, err := RemoteID(session)
	if err != nil {
		return nil, err
	}
	d := &dialer{target: target, onUnavailable: onUnavailable}
	e, err := newEndpoint(nw, cfg, id, d)
	if err != nil {
		return nil, err
	}
	return &Controller{Endpoint: e, d: d}, nil
}

// SendPress sends a press message for key to every active connection.
func (c *Controller) SendPress(key string) error { return c.send(Press(key)) }

// SendRelease sends a release message for key to every active connection.
func (c *Controller) SendRelease(key string) error { return c.send(Release(key)) }

// StopRetrying cancels any pending retry and disables further retries. A
// dial already in progress is not interrupted.
func (c *Controller) StopRetrying() {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.d.stopLocked()
}

// Target reports the identity of the remote the controller dials.
func (c *Controller) Target() string { return c.d.target }

// dialer is the role of a controller.
type dialer struct {
	target        string
	onUnavailable func()

	// Fields below are protected by the endpoint lock.
	dialing bool         // a dial is in progress
	stopped bool         // no further retries
	timer   *clock.Timer // pending retry, or nil
}

func (d *dialer) open(e *Endpoint) { d.dial(e) }

// The connection callback of a controller reports its own identity, and the
// close callback reports the connection ID.
func (d *dialer) openLabel(e *Endpoint, _ Conn) string { return e.id }
func (d *dialer) closeLabel(c Conn) string             { return c.ID() }

// A controller does not expect to receive key events.
func (*dialer) routeKeyLocked(*Message) (func(), bool) { return nil, false }

func (d *dialer) stopLocked() {
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// dial attempts one connection to the target. It does nothing if e already
// has a connection, a dial is already in progress, or e is closed.
func (d *dialer) dial(e *Endpoint) {
	e.μ.Lock()
	if e.closed || d.dialing || len(e.conns) != 0 {
		e.μ.Unlock()
		return
	}
	d.dialing = true
	node := e.node
	e.setStatusLocked(StatusConnecting)
	e.μ.Unlock()

	rootMetrics.dials.Add(1)
	e.log.Debug("dialing remote", "target", d.target)
	conn, err := node.Dial(e.ctx, d.target)

	e.μ.Lock()
	d.dialing = false
	if err == nil {
		ok := e.addConnLocked(conn)
		e.μ.Unlock()
		if !ok {
			conn.Close()
		}
		return
	}
	e.μ.Unlock()

	if e.ctx.Err() != nil {
		return // closed while dialing
	}
	rootMetrics.dialFailed.Add(1)
	if te := e.fail(err); te.Type == ErrPeerUnavailable {
		d.unavailable(e)
	}
}

// unavailable schedules a retry unless retries have been stopped, and
// reports the unreachable target to the hook. The retry timer is armed
// before the hook runs.
func (d *dialer) unavailable(e *Endpoint) {
	e.μ.Lock()
	defer e.μ.Unlock()
	if !e.closed && !d.stopped {
		wait := e.cfg.retryTimeout()
		e.log.Info("remote unavailable, will retry", "target", d.target, "after", wait)
		rootMetrics.dialRetries.Add(1)
		d.timer = e.clock.AfterFunc(wait, func() { d.retry(e) })
	}
	if d.onUnavailable != nil {
		e.post(d.onUnavailable)
	}
}

// retry runs when a retry timer fires. A retry that finds the endpoint
// already connected, dialing, or closed has no effect.
func (d *dialer) retry(e *Endpoint) {
	e.μ.Lock()
	defer e.μ.Unlock()
	d.timer = nil
	if e.closed || d.stopped || d.dialing || len(e.conns) != 0 {
		return
	}
	e.tasks.Go(func() error { d.dial(e); return nil })
}
