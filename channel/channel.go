// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package channel provides implementations of the trinn.Conn interface.
package channel

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"sync"

	"github.com/creachadair/trinn"
)

// Direct constructs a connected pair of in-memory connections with the given
// connection id, that pass messages directly without encoding. Messages sent
// to A are received by B and vice versa. The identity of A is a and the
// identity of B is b, so A.Peer() == b and B.Peer() == a.
//
// Closing either end closes the connection in both directions.
func Direct(id, a, b string) (A, B *DirectConn) {
	sh := &shared{done: make(chan struct{})}
	a2b := make(chan *trinn.Message)
	b2a := make(chan *trinn.Message)
	A = &DirectConn{id: id, peer: b, sh: sh, out: a2b, in: b2a}
	B = &DirectConn{id: id, peer: a, sh: sh, out: b2a, in: a2b}
	return
}

type shared struct {
	once sync.Once
	done chan struct{}
}

// A DirectConn is one end of an in-memory connection. See [Direct].
type DirectConn struct {
	id, peer string
	sh       *shared
	out      chan<- *trinn.Message
	in       <-chan *trinn.Message
}

// ID implements a method of the [trinn.Conn] interface.
func (d *DirectConn) ID() string { return d.id }

// Peer implements a method of the [trinn.Conn] interface.
func (d *DirectConn) Peer() string { return d.peer }

// Send implements a method of the [trinn.Conn] interface. It blocks until
// the message is received by the other end, or the connection is closed.
func (d *DirectConn) Send(m *trinn.Message) error {
	select {
	case <-d.sh.done:
		return net.ErrClosed
	default:
	}
	select {
	case d.out <- m:
		return nil
	case <-d.sh.done:
		return net.ErrClosed
	}
}

// Recv implements a method of the [trinn.Conn] interface.
func (d *DirectConn) Recv() (*trinn.Message, error) {
	select {
	case m := <-d.in:
		return m, nil
	case <-d.sh.done:
		return nil, net.ErrClosed
	}
}

// Close implements a method of the [trinn.Conn] interface. Closing a
// connection that is already closed reports [net.ErrClosed].
func (d *DirectConn) Close() error {
	err := net.ErrClosed
	d.sh.once.Do(func() { close(d.sh.done); err = nil })
	return err
}

// IO constructs a connection that receives from r and sends to wc. Each
// message is encoded as a single JSON text.
func IO(id, peer string, r io.Reader, wc io.WriteCloser) *IOChannel {
	// N.B. The bufio package will reuse existing buffers if possible.
	w := bufio.NewWriter(wc)
	return &IOChannel{
		id:   id,
		peer: peer,
		dec:  json.NewDecoder(bufio.NewReader(r)),
		w:    w,
		enc:  json.NewEncoder(w),
		c:    wc,
	}
}

// An IOChannel sends and receives messages on a reader and a writer.
type IOChannel struct {
	id, peer string
	dec      *json.Decoder
	c        io.Closer

	μ   sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
}

// ID implements a method of the [trinn.Conn] interface.
func (c *IOChannel) ID() string { return c.id }

// Peer implements a method of the [trinn.Conn] interface.
func (c *IOChannel) Peer() string { return c.peer }

// Send implements a method of the [trinn.Conn] interface. It is safe to call
// Send concurrently from multiple goroutines.
func (c *IOChannel) Send(m *trinn.Message) error {
	c.μ.Lock()
	defer c.μ.Unlock()
	if err := c.enc.Encode(m); err != nil {
		return err
	}
	return c.w.Flush()
}

// Recv implements a method of the [trinn.Conn] interface. It must not be
// called concurrently from multiple goroutines.
func (c *IOChannel) Recv() (*trinn.Message, error) {
	var m trinn.Message
	if err := c.dec.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Close implements a method of the [trinn.Conn] interface.
func (c *IOChannel) Close() error { return c.c.Close() }
