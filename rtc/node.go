// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package rtc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/creachadair/trinn"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

const (
	heartbeatInterval = 5 * time.Second
	gatherTimeout     = 10 * time.Second
	openTimeout       = 30 * time.Second
)

// Network is a [trinn.Network] that registers identities with a PeerJS
// signaling server and connects endpoints with WebRTC data channels.
type Network struct {
	// Dialer is used to connect to the signaling server.
	// If nil, websocket.DefaultDialer is used.
	Dialer *websocket.Dialer

	// If LocalOnly is true, the traversal servers of the config are not
	// used, and connections are formed only from host candidates. This is
	// sufficient for endpoints on the same host or network.
	LocalOnly bool
}

// New constructs a Network with default settings.
func New() *Network { return new(Network) }

// Listen implements a method of the [trinn.Network] interface. It connects
// to the signaling server named by cfg and blocks until the server confirms
// the registration of id.
func (w *Network) Listen(ctx context.Context, id string, cfg *trinn.Config) (trinn.Node, error) {
	d := w.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("node", id)

	var ice []webrtc.ICEServer
	if !w.LocalOnly {
		ice = ICEServers(cfg.ICEServers)
	}

	ws, _, err := d.DialContext(ctx, signalURL(cfg, id, newToken()), nil)
	if err != nil {
		return nil, &trinn.TransportError{
			Name: "Error", Type: trinn.ErrSocketError, Message: "cannot reach signaling server", Err: err,
		}
	}
	n := &Node{
		id:     id,
		cfg:    cfg,
		api:    newAPI(),
		ice:    ice,
		ws:     ws,
		log:    log,
		tasks:  taskgroup.New(nil),
		accept: make(chan *Conn),
		opened: make(chan struct{}),
		done:   make(chan struct{}),
		lost:   make(chan struct{}),
		dials:  make(map[string]*dialState),
		conns:  make(map[string]*Conn),
	}
	n.tasks.Go(n.readLoop)

	select {
	case <-n.opened:
	case <-n.lost:
		n.Close()
		return nil, n.lostErr
	case <-ctx.Done():
		n.Close()
		return nil, ctx.Err()
	}
	n.tasks.Go(n.heartbeat)
	log.Debug("registered with signaling server")
	return n, nil
}

// A Node is an identity registered with a signaling server.
type Node struct {
	id    string
	cfg   *trinn.Config
	api   *webrtc.API
	ice   []webrtc.ICEServer
	ws    *websocket.Conn
	log   *slog.Logger
	tasks *taskgroup.Group

	accept   chan *Conn
	opened   chan struct{} // closed when the server confirms the id
	done     chan struct{} // closed when the node is closed
	lost     chan struct{} // closed when the signaling socket fails
	lostErr  error
	openOnce sync.Once
	lostOnce sync.Once
	stopOnce sync.Once

	wμ sync.Mutex // serializes writes to ws

	μ     sync.Mutex
	dials map[string]*dialState // by connection ID
	conns map[string]*Conn      // by connection ID
}

// dialState tracks an outbound connection until its data channel opens.
type dialState struct {
	target string
	fail   chan error // buffered
}

// ID implements a method of the [trinn.Node] interface.
func (n *Node) ID() string { return n.id }

// Dial implements a method of the [trinn.Node] interface. If the signaling
// server reports that target is not registered, Dial reports a
// [trinn.TransportError] of type peer-unavailable.
func (n *Node) Dial(ctx context.Context, target string) (trinn.Conn, error) {
	select {
	case <-n.done:
		return nil, net.ErrClosed
	default:
	}

	connID := "dc_" + uuid.NewString()
	pc, err := n.newPeerConnection()
	if err != nil {
		return nil, err
	}
	ordered := true
	dc, err := pc.CreateDataChannel(connID, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, webrtcError("creating data channel", err)
	}
	c := newConn(n, connID, target, pc)
	c.bind(dc)

	ds := &dialState{target: target, fail: make(chan error, 1)}
	n.μ.Lock()
	n.dials[connID] = ds
	n.conns[connID] = c
	n.μ.Unlock()
	defer func() {
		n.μ.Lock()
		delete(n.dials, connID)
		n.μ.Unlock()
	}()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		c.Close()
		return nil, webrtcError("creating offer", err)
	}
	if err := n.setLocal(ctx, pc, offer); err != nil {
		c.Close()
		return nil, err
	}
	if err := n.send(envelope{
		Type: msgOffer,
		Dst:  target,
		Payload: mustPayload(offerPayload{
			SDP:           *pc.LocalDescription(),
			Type:          connTypeData,
			ConnectionID:  connID,
			Label:         connID,
			Serialization: serializationJSON,
			Reliable:      true,
			Browser:       browserName,
		}),
	}); err != nil {
		c.Close()
		return nil, err
	}
	n.log.Debug("sent offer", "conn", connID, "target", target)

	select {
	case <-c.opened:
		return c, nil
	case err := <-ds.fail:
		c.Close()
		return nil, err
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	case <-n.done:
		c.Close()
		return nil, net.ErrClosed
	case <-n.lost:
		c.Close()
		return nil, n.lostErr
	case <-time.After(openTimeout):
		c.Close()
		return nil, &trinn.TransportError{
			Name: "Error", Type: trinn.ErrWebRTC,
			Message: fmt.Sprintf("connection to %s did not open within %v", target, openTimeout),
		}
	}
}

// Accept implements a method of the [trinn.Node] interface. It returns
// connections offered by other endpoints once their data channels are open.
func (n *Node) Accept(ctx context.Context) (trinn.Conn, error) {
	select {
	case c := <-n.accept:
		return c, nil
	case <-n.done:
		return nil, net.ErrClosed
	case <-n.lost:
		return nil, n.lostErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements a method of the [trinn.Node] interface. It disconnects
// from the signaling server and closes all connections of n.
func (n *Node) Close() error {
	err := net.ErrClosed
	n.stopOnce.Do(func() {
		close(n.done)
		err = n.ws.Close()

		n.μ.Lock()
		conns := make([]*Conn, 0, len(n.conns))
		for _, c := range n.conns {
			conns = append(conns, c)
		}
		n.μ.Unlock()
		for _, c := range conns {
			c.Close()
		}
		n.tasks.Wait()
	})
	return err
}

func (n *Node) forget(c *Conn) {
	n.μ.Lock()
	defer n.μ.Unlock()
	if n.conns[c.id] == c {
		delete(n.conns, c.id)
	}
}

func (n *Node) lookup(connID string) *Conn {
	n.μ.Lock()
	defer n.μ.Unlock()
	return n.conns[connID]
}

// lose records that the signaling connection failed with err.
func (n *Node) lose(err error) {
	n.lostOnce.Do(func() {
		n.lostErr = err
		close(n.lost)
	})
}

func (n *Node) send(e envelope) error {
	n.wμ.Lock()
	defer n.wμ.Unlock()
	if err := n.ws.WriteJSON(e); err != nil {
		return &trinn.TransportError{
			Name: "Error", Type: trinn.ErrSocketError, Message: "signaling write failed", Err: err,
		}
	}
	return nil
}

func (n *Node) readLoop() error {
	for {
		var e envelope
		if err := n.ws.ReadJSON(&e); err != nil {
			select {
			case <-n.done:
			default:
				n.log.Warn("signaling connection lost", "error", err)
				n.lose(&trinn.TransportError{
					Name: "Error", Type: trinn.ErrDisconnected,
					Message: "lost connection to signaling server", Err: err,
				})
			}
			return nil
		}
		n.handle(e)
	}
}

func (n *Node) heartbeat() error {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-n.done:
			return nil
		case <-n.lost:
			return nil
		case <-t.C:
			if err := n.send(envelope{Type: msgHeartbeat}); err != nil {
				n.log.Debug("heartbeat failed", "error", err)
			}
		}
	}
}

// handle dispatches a message from the signaling server. It runs on the read
// loop, so it must not block on network activity.
func (n *Node) handle(e envelope) {
	n.log.Debug("signal", "msg", e.String())
	if te, ok := serverError(e, n.cfg, n.id); ok {
		select {
		case <-n.opened:
			n.log.Warn("signaling server error", "error", te)
		default:
			n.lose(te)
		}
		return
	}

	switch e.Type {
	case msgOpen:
		n.openOnce.Do(func() { close(n.opened) })

	case msgOffer:
		p, err := decodePayload[offerPayload](e)
		if err != nil {
			n.log.Debug("discarding offer", "error", err)
			return
		}
		n.tasks.Go(func() error { n.answer(e.Src, p); return nil })

	case msgAnswer:
		p, err := decodePayload[answerPayload](e)
		if err != nil {
			n.log.Debug("discarding answer", "error", err)
			return
		}
		c := n.lookup(p.ConnectionID)
		if c == nil {
			return
		}
		if err := c.pc.SetRemoteDescription(p.SDP); err != nil {
			n.failDial(p.ConnectionID, webrtcError("setting remote description", err))
		}

	case msgCandidate:
		p, err := decodePayload[candidatePayload](e)
		if err != nil {
			n.log.Debug("discarding candidate", "error", err)
			return
		}
		if c := n.lookup(p.ConnectionID); c != nil {
			if err := c.pc.AddICECandidate(p.Candidate); err != nil {
				n.log.Debug("adding candidate failed", "conn", p.ConnectionID, "error", err)
			}
		}

	case msgExpire:
		// The server could not deliver a message to e.Src.
		n.μ.Lock()
		for _, ds := range n.dials {
			if ds.target == e.Src {
				select {
				case ds.fail <- trinn.PeerUnavailable(e.Src):
				default:
				}
			}
		}
		n.μ.Unlock()

	case msgLeave:
		n.μ.Lock()
		var gone []*Conn
		for _, c := range n.conns {
			if c.peer == e.Src {
				gone = append(gone, c)
			}
		}
		n.μ.Unlock()
		for _, c := range gone {
			n.log.Debug("peer left", "conn", c.id, "peer", c.peer)
			go c.Close()
		}

	default:
		n.log.Debug("unhandled signal", "type", e.Type)
	}
}

func (n *Node) failDial(connID string, err error) {
	n.μ.Lock()
	defer n.μ.Unlock()
	if ds, ok := n.dials[connID]; ok {
		select {
		case ds.fail <- err:
		default:
		}
	}
}

// answer responds to an offer from src, and delivers the resulting
// connection to Accept once its data channel opens.
func (n *Node) answer(src string, p offerPayload) {
	log := n.log.With("conn", p.ConnectionID, "peer", src)
	if p.Type != "" && p.Type != connTypeData {
		log.Debug("ignoring offer for unsupported connection type", "type", p.Type)
		return
	}
	pc, err := n.newPeerConnection()
	if err != nil {
		log.Warn("answer failed", "error", err)
		return
	}
	c := newConn(n, p.ConnectionID, src, pc)
	pc.OnDataChannel(c.bind)

	n.μ.Lock()
	n.conns[c.id] = c
	n.μ.Unlock()

	if err := pc.SetRemoteDescription(p.SDP); err != nil {
		log.Warn("answer failed", "error", webrtcError("setting remote description", err))
		c.Close()
		return
	}
	ans, err := pc.CreateAnswer(nil)
	if err != nil {
		log.Warn("answer failed", "error", webrtcError("creating answer", err))
		c.Close()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-n.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	if err := n.setLocal(ctx, pc, ans); err != nil {
		log.Warn("answer failed", "error", err)
		c.Close()
		return
	}
	if err := n.send(envelope{
		Type: msgAnswer,
		Dst:  src,
		Payload: mustPayload(answerPayload{
			SDP:          *pc.LocalDescription(),
			Type:         connTypeData,
			ConnectionID: c.id,
			Browser:      browserName,
		}),
	}); err != nil {
		log.Warn("answer failed", "error", err)
		c.Close()
		return
	}

	select {
	case <-c.opened:
	case <-c.done:
		return
	case <-n.done:
		c.Close()
		return
	case <-time.After(openTimeout):
		log.Warn("connection did not open", "timeout", openTimeout)
		c.Close()
		return
	}
	select {
	case n.accept <- c:
	case <-c.done:
	case <-n.done:
		c.Close()
	}
}

// setLocal sets the local description of pc and waits for candidate
// gathering to complete, so that the description carries all candidates.
func (n *Node) setLocal(ctx context.Context, pc *webrtc.PeerConnection, sd webrtc.SessionDescription) error {
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(sd); err != nil {
		return webrtcError("setting local description", err)
	}
	select {
	case <-gathered:
		return nil
	case <-time.After(gatherTimeout):
		return &trinn.TransportError{
			Name: "Error", Type: trinn.ErrWebRTC,
			Message: fmt.Sprintf("ICE gathering timed out after %v", gatherTimeout),
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Node) newPeerConnection() (*webrtc.PeerConnection, error) {
	pc, err := n.api.NewPeerConnection(webrtc.Configuration{ICEServers: n.ice})
	if err != nil {
		return nil, webrtcError("creating peer connection", err)
	}
	return pc, nil
}

func webrtcError(op string, err error) *trinn.TransportError {
	return &trinn.TransportError{Name: "Error", Type: trinn.ErrWebRTC, Message: op + ": " + err.Error(), Err: err}
}
