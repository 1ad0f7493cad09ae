// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/creachadair/taskgroup"
)

// A role supplies the behavior that distinguishes a controller from a
// remote. Methods with the Locked suffix are called with the endpoint lock
// held.
type role interface {
	// open is called once, after the endpoint identity is registered.
	open(*Endpoint)

	// openLabel and closeLabel return the values reported to the connection
	// and connection-close callbacks for c.
	openLabel(*Endpoint, Conn) string
	closeLabel(Conn) string

	// routeKeyLocked returns the callback for a press or release message, and
	// reports whether the role accepts such messages at all.
	routeKeyLocked(*Message) (func(), bool)

	// stopLocked is called when the endpoint is closed.
	stopLocked()
}

// An Endpoint is one side of a session: an identity registered with a
// network, together with the connections it currently holds. The Controller
// and Remote types embed an Endpoint and add the behavior of their role.
//
// All callbacks registered on an endpoint are invoked one at a time, in
// event order, on a goroutine owned by the endpoint. A callback may safely
// call methods of the endpoint, including sends and registrations.
type Endpoint struct {
	nw     Network
	cfg    *Config
	want   string // the requested identity
	role   role
	log    *slog.Logger
	clock  clock.Clock
	ctx    context.Context
	cancel context.CancelFunc
	tasks  *taskgroup.Group
	events *eventLoop

	μ sync.Mutex

	node   Node
	id     string          // assigned by the network when ready
	ready  bool            // the identity was registered
	status Status          // current status
	err    *TransportError // most recent transport error
	conns  []Conn          // active connections, in order of opening
	closed bool
	plog   MessageLogger

	onCreate          slot[string]
	onConnection      slot[string]
	onConnectionClose slot[string]
	onData            slot[json.RawMessage]
	onStatus          slot[Status]
	onError           slot[*TransportError]
}

// newEndpoint validates its arguments and starts registering id with nw.
// It does not block waiting for the registration.
func newEndpoint(nw Network, cfg *Config, id string, r role) (*Endpoint, error) {
	if !ValidID(id) {
		return nil, &ValidationError{ID: id}
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if nw == nil {
		return nil, &ConfigError{Reason: "no network"}
	}
	log := cfg.logger().With("endpoint", id)
	ctx, cancel := context.WithCancel(context.Background())
	e := &Endpoint{
		nw:     nw,
		cfg:    cfg,
		want:   id,
		role:   r,
		log:    log,
		clock:  cfg.clock(),
		ctx:    ctx,
		cancel: cancel,
		tasks:  taskgroup.New(nil),
		events: newEventLoop(log),
		status: StatusWaiting,
	}
	e.tasks.Go(func() error { e.listen(); return nil })
	return e, nil
}

func (e *Endpoint) listen() {
	node, err := e.nw.Listen(e.ctx, e.want, e.cfg)
	if err != nil {
		if e.ctx.Err() == nil {
			e.fail(fmt.Errorf("register %q: %w", e.want, err))
		}
		return
	}

	e.μ.Lock()
	if e.closed {
		e.μ.Unlock()
		node.Close()
		return
	}
	e.node = node
	e.id = node.ID()
	e.ready = true
	e.setStatusLocked(StatusReady)
	e.post(e.onCreate.bind(e.id))
	e.μ.Unlock()

	e.log.Info("endpoint registered", "id", node.ID())
	e.role.open(e)
}

// fail records err as the most recent transport error of e, and reports it
// to the error callback.
func (e *Endpoint) fail(err error) *TransportError {
	te := asTransportError(err)
	rootMetrics.transErrors.Add(1)
	e.log.Warn("transport error", "type", te.Type, "error", err)

	e.μ.Lock()
	defer e.μ.Unlock()
	e.err = te
	e.post(e.onError.bind(te))
	return te
}

// post schedules f on the event loop. A nil f is ignored.
func (e *Endpoint) post(f func()) {
	if f != nil {
		e.events.post(f)
	}
}

// setStatusLocked updates the status of e and notifies the status callback,
// if the status changed.
func (e *Endpoint) setStatusLocked(s Status) {
	if e.status == s {
		return
	}
	e.log.Debug("status change", "from", e.status, "to", s)
	e.status = s
	e.post(e.onStatus.bind(s))
}

// addConnLocked registers c as an active connection and starts its receive
// loop. It reports false without registering c if e is closed or c is
// already registered; the caller is responsible for closing c in that case.
func (e *Endpoint) addConnLocked(c Conn) bool {
	if e.closed || slices.Contains(e.conns, c) {
		return false
	}
	e.conns = append(e.conns, c)
	rootMetrics.connActive.Add(1)
	e.setStatusLocked(StatusConnected)
	e.post(e.onConnection.bind(e.role.openLabel(e, c)))
	e.log.Info("connection open", "conn", c.ID(), "peer", c.Peer())

	e.tasks.Go(func() error {
		for {
			m, err := c.Recv()
			if err != nil {
				e.dropConn(c, err)
				return nil
			}
			e.deliver(c, m)
		}
	})
	return true
}

// dropConn removes c from the registry of active connections and closes it.
func (e *Endpoint) dropConn(c Conn, cause error) {
	e.μ.Lock()
	i := slices.Index(e.conns, c)
	if i < 0 {
		e.μ.Unlock()
		return
	}
	e.conns = slices.Delete(e.conns, i, i+1)
	rootMetrics.connActive.Add(-1)
	e.post(e.onConnectionClose.bind(e.role.closeLabel(c)))
	e.μ.Unlock()

	c.Close()
	e.log.Info("connection closed", "conn", c.ID(), "peer", c.Peer(), "cause", cause)
}

// deliver routes an inbound message from c to its callback.
func (e *Endpoint) deliver(c Conn, m *Message) {
	rootMetrics.msgRecv.Add(1)
	e.trace(c, m, false)

	e.μ.Lock()
	f, ok := e.routeLocked(m)
	e.μ.Unlock()
	if !ok {
		rootMetrics.msgDropped.Add(1)
		e.log.Debug("dropped message", "conn", c.ID(), "type", string(m.Type))
		return
	}
	e.post(f)
}

// send sends m to every active connection. It reports the failures of
// individual connections, if any; sending to no connections is not an error.
func (e *Endpoint) send(m *Message) error {
	e.μ.Lock()
	conns := slices.Clone(e.conns)
	e.μ.Unlock()

	var errs []error
	for _, c := range conns {
		e.trace(c, m, true)
		if err := c.Send(m); err != nil {
			e.log.Warn("send failed", "conn", c.ID(), "peer", c.Peer(), "error", err)
			errs = append(errs, fmt.Errorf("send to %s: %w", c.Peer(), err))
			continue
		}
		rootMetrics.msgSent.Add(1)
	}
	return errors.Join(errs...)
}

func (e *Endpoint) trace(c Conn, m *Message, sent bool) {
	e.μ.Lock()
	plog := e.plog
	e.μ.Unlock()

	info := MessageInfo{Message: m, Conn: c.ID(), Sent: sent}
	if plog != nil {
		plog(info)
	}
	if e.cfg.Debug {
		e.log.Debug("message", "info", info.String())
	}
}

// SendData sends a data message whose object is the JSON encoding of v to
// every active connection of e. If e has no connections, SendData does
// nothing and returns nil.
func (e *Endpoint) SendData(v any) error {
	m, err := Data(v)
	if err != nil {
		return err
	}
	return e.send(m)
}

// OnCreate registers f to be called with the identity of e once it has been
// registered with the network. If that has already happened, f is called
// promptly with the existing identity.
func (e *Endpoint) OnCreate(f func(id string)) Subscription {
	e.μ.Lock()
	defer e.μ.Unlock()
	sub := e.onCreate.set(f, e.μ.Lock, e.μ.Unlock)
	if e.ready {
		e.post(e.onCreate.bind(e.id))
	}
	return sub
}

// OnConnection registers f to be called when a connection opens. Any
// connections already open when f is registered are reported to f promptly.
func (e *Endpoint) OnConnection(f func(peer string)) Subscription {
	e.μ.Lock()
	defer e.μ.Unlock()
	sub := e.onConnection.set(f, e.μ.Lock, e.μ.Unlock)
	for _, c := range e.conns {
		e.post(e.onConnection.bind(e.role.openLabel(e, c)))
	}
	return sub
}

// OnConnectionClose registers f to be called when an active connection
// closes.
func (e *Endpoint) OnConnectionClose(f func(peer string)) Subscription {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.onConnectionClose.set(f, e.μ.Lock, e.μ.Unlock)
}

// OnData registers f to be called with the object of each data message
// received by e.
func (e *Endpoint) OnData(f func(obj json.RawMessage)) Subscription {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.onData.set(f, e.μ.Lock, e.μ.Unlock)
}

// OnStatusChange registers f to be called each time the status of e changes.
func (e *Endpoint) OnStatusChange(f func(Status)) Subscription {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.onStatus.set(f, e.μ.Lock, e.μ.Unlock)
}

// OnError registers f to be called with each error reported by the
// transport. If an error was already recorded, f is called promptly with it.
func (e *Endpoint) OnError(f func(*TransportError)) Subscription {
	e.μ.Lock()
	defer e.μ.Unlock()
	sub := e.onError.set(f, e.μ.Lock, e.μ.Unlock)
	if e.err != nil {
		e.post(e.onError.bind(e.err))
	}
	return sub
}

// LogMessages registers a callback to be invoked for each message sent or
// received by e. Unlike other callbacks, the logger is invoked synchronously
// by the goroutine sending or receiving the message. Pass nil to disable
// logging.
func (e *Endpoint) LogMessages(log MessageLogger) *Endpoint {
	e.μ.Lock()
	defer e.μ.Unlock()
	e.plog = log
	return e
}

// ID reports the identity assigned to e, or "" if e is not yet registered.
func (e *Endpoint) ID() string {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.id
}

// Status reports the current status of e.
func (e *Endpoint) Status() Status {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.status
}

// Ready reports whether the identity of e has been registered.
func (e *Endpoint) Ready() bool {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.ready
}

// Err reports the most recent transport error recorded by e, or nil.
func (e *Endpoint) Err() *TransportError {
	e.μ.Lock()
	defer e.μ.Unlock()
	return e.err
}

// Peers reports the identities of the other ends of the active connections
// of e, in order of opening.
func (e *Endpoint) Peers() []string {
	e.μ.Lock()
	defer e.μ.Unlock()
	out := make([]string, len(e.conns))
	for i, c := range e.conns {
		out[i] = c.Peer()
	}
	return out
}

// Metrics returns a metrics map for endpoints. Metrics are shared among all
// endpoints in the process. It is safe for the caller to add additional
// metrics to the map.
func (e *Endpoint) Metrics() *expvar.Map { return rootMetrics.emap }

// Close unregisters e, stops any pending retries, and closes all its
// connections. Callbacks for events that occurred before Close returns are
// delivered before it returns; no callbacks are invoked afterward.
// Close must not be called from inside a callback.
func (e *Endpoint) Close() error {
	e.μ.Lock()
	if e.closed {
		e.μ.Unlock()
		return nil
	}
	e.closed = true
	e.role.stopLocked()
	node := e.node
	conns := slices.Clone(e.conns)
	e.μ.Unlock()

	e.cancel()
	var err error
	if node != nil {
		err = node.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	e.tasks.Wait()
	e.events.close()
	return err
}
