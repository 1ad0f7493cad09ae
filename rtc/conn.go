// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package rtc

import (
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/creachadair/trinn"
	"github.com/pion/webrtc/v4"
)

// A Conn is a connection carried by a WebRTC data channel. Messages are
// exchanged as JSON text, compatible with the "json" serialization of PeerJS.
type Conn struct {
	id, peer string
	node     *Node
	pc       *webrtc.PeerConnection

	in       chan *trinn.Message
	opened   chan struct{}
	done     chan struct{}
	openOnce sync.Once
	stopOnce sync.Once

	μ  sync.Mutex
	dc *webrtc.DataChannel
}

func newConn(n *Node, id, peer string, pc *webrtc.PeerConnection) *Conn {
	c := &Conn{
		id:     id,
		peer:   peer,
		node:   n,
		pc:     pc,
		in:     make(chan *trinn.Message),
		opened: make(chan struct{}),
		done:   make(chan struct{}),
	}
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		n.log.Debug("peer connection state", "conn", id, "peer", peer, "state", s.String())
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			go c.Close()
		}
	})
	return c
}

// bind attaches dc to c. Messages received on dc are queued for Recv.
func (c *Conn) bind(dc *webrtc.DataChannel) {
	c.μ.Lock()
	c.dc = dc
	c.μ.Unlock()

	dc.OnOpen(func() {
		c.openOnce.Do(func() { close(c.opened) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		var m trinn.Message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			c.node.log.Debug("invalid message", "conn", c.id, "error", err)
			return
		}
		select {
		case c.in <- &m:
		case <-c.done:
		}
	})
	dc.OnClose(func() { go c.Close() })
}

// ID implements a method of the [trinn.Conn] interface. It reports the
// connection ID shared by both ends, which is also the data channel label.
func (c *Conn) ID() string { return c.id }

// Peer implements a method of the [trinn.Conn] interface.
func (c *Conn) Peer() string { return c.peer }

// Send implements a method of the [trinn.Conn] interface.
func (c *Conn) Send(m *trinn.Message) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	c.μ.Lock()
	dc := c.dc
	c.μ.Unlock()
	if dc == nil {
		return errors.New("data channel is not open")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return dc.SendText(string(data))
}

// Recv implements a method of the [trinn.Conn] interface.
func (c *Conn) Recv() (*trinn.Message, error) {
	select {
	case m := <-c.in:
		return m, nil
	case <-c.done:
		return nil, net.ErrClosed
	}
}

// Close implements a method of the [trinn.Conn] interface. It closes the
// data channel and the underlying peer connection.
func (c *Conn) Close() error {
	err := net.ErrClosed
	c.stopOnce.Do(func() {
		close(c.done)
		c.node.forget(c)

		c.μ.Lock()
		dc := c.dc
		c.μ.Unlock()
		if dc != nil {
			dc.Close()
		}
		err = c.pc.Close()
	})
	return err
}
