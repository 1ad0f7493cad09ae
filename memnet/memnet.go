// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package memnet implements an in-process [trinn.Network]. It is intended
// for tests and for running a controller and a remote in the same process.
package memnet

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/creachadair/trinn"
	"github.com/creachadair/trinn/channel"
	"github.com/google/uuid"
)

// Network is an in-memory network of nodes. The zero value is not ready for
// use; call New to construct one.
type Network struct {
	// If Wire is true, connections encode messages as JSON over a synchronous
	// in-memory pipe instead of passing them directly.
	Wire bool

	μ     sync.Mutex
	nodes map[string]*Node
	dials map[string]int
}

// New constructs a new empty network.
func New() *Network {
	return &Network{nodes: make(map[string]*Node), dials: make(map[string]int)}
}

// Listen implements a method of the [trinn.Network] interface. It reports a
// [trinn.TransportError] of type unavailable-id if id is already registered.
func (n *Network) Listen(ctx context.Context, id string, _ *trinn.Config) (trinn.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !trinn.ValidID(id) {
		return nil, &trinn.TransportError{
			Name: "Error", Type: trinn.ErrInvalidID, Message: fmt.Sprintf("ID %q is invalid", id),
		}
	}
	n.μ.Lock()
	defer n.μ.Unlock()
	if _, ok := n.nodes[id]; ok {
		return nil, &trinn.TransportError{
			Name: "Error", Type: trinn.ErrUnavailableID, Message: fmt.Sprintf("ID %q is taken", id),
		}
	}
	node := &Node{
		nw:     n,
		id:     id,
		accept: make(chan trinn.Conn),
		done:   make(chan struct{}),
	}
	n.nodes[id] = node
	return node, nil
}

// Dials reports the number of times a node has dialed target, whether or not
// the dial succeeded.
func (n *Network) Dials(target string) int {
	n.μ.Lock()
	defer n.μ.Unlock()
	return n.dials[target]
}

// Nodes reports the identities of the nodes currently registered, in
// lexicographic order.
func (n *Network) Nodes() []string {
	n.μ.Lock()
	defer n.μ.Unlock()
	out := make([]string, 0, len(n.nodes))
	for id := range n.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (n *Network) lookup(target string) *Node {
	n.μ.Lock()
	defer n.μ.Unlock()
	n.dials[target]++
	return n.nodes[target]
}

func (n *Network) remove(node *Node) {
	n.μ.Lock()
	defer n.μ.Unlock()
	if n.nodes[node.id] == node {
		delete(n.nodes, node.id)
	}
}

func (n *Network) pair(id, src, dst string) (a, b trinn.Conn) {
	if !n.Wire {
		return channel.Direct(id, src, dst)
	}
	pa, pb := net.Pipe()
	return channel.IO(id, dst, pa, pa), channel.IO(id, src, pb, pb)
}

// A Node is an identity registered with a [Network].
type Node struct {
	nw     *Network
	id     string
	accept chan trinn.Conn
	once   sync.Once
	done   chan struct{}
}

// ID implements a method of the [trinn.Node] interface.
func (n *Node) ID() string { return n.id }

// Dial implements a method of the [trinn.Node] interface. It reports a
// [trinn.TransportError] of type peer-unavailable if target is not
// registered, or stops accepting before the dial completes.
func (n *Node) Dial(ctx context.Context, target string) (trinn.Conn, error) {
	select {
	case <-n.done:
		return nil, net.ErrClosed
	default:
	}
	dst := n.nw.lookup(target)
	if dst == nil {
		return nil, trinn.PeerUnavailable(target)
	}
	local, remote := n.nw.pair("dc_"+uuid.NewString(), n.id, target)
	select {
	case dst.accept <- remote:
		return local, nil
	case <-dst.done:
		local.Close()
		remote.Close()
		return nil, trinn.PeerUnavailable(target)
	case <-n.done:
		local.Close()
		remote.Close()
		return nil, net.ErrClosed
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}
}

// Accept implements a method of the [trinn.Node] interface.
func (n *Node) Accept(ctx context.Context) (trinn.Conn, error) {
	select {
	case c := <-n.accept:
		return c, nil
	case <-n.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements a method of the [trinn.Node] interface. It unregisters
// the identity of n; connections already formed are not affected.
func (n *Node) Close() error {
	err := net.ErrClosed
	n.once.Do(func() {
		close(n.done)
		n.nw.remove(n)
		err = nil
	})
	return err
}
