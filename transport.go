// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import "context"

// A Network registers endpoint identities and forms connections between
// them. It performs whatever signaling and NAT traversal is required; the
// endpoints in this package only see the resulting connections.
type Network interface {
	// Listen registers id with the network and blocks until the registration
	// is accepted or fails. The settings in cfg, including its traversal
	// servers, apply to all connections formed by the resulting node.
	Listen(ctx context.Context, id string, cfg *Config) (Node, error)
}

// A Node is an identity registered with a Network.
//
// Errors reported by the methods of a Node should have concrete type
// *TransportError. Other errors are treated as network errors.
type Node interface {
	// ID reports the identity assigned to the node by the network.
	ID() string

	// Dial opens a connection to the node with the target identity, and
	// blocks until the connection is open or fails. If no such node is
	// reachable, Dial reports an error of type ErrPeerUnavailable.
	Dial(ctx context.Context, target string) (Conn, error)

	// Accept blocks until a connection initiated by another node is open, and
	// returns it. After the node is closed, Accept reports net.ErrClosed.
	Accept(ctx context.Context) (Conn, error)

	// Close unregisters the node. Connections already formed are not closed.
	Close() error
}

// A Conn is an open, ordered and reliable connection between two nodes.
//
// The Send method must be safe for concurrent use by multiple goroutines.
// Recv is called by one goroutine at a time.
type Conn interface {
	// ID reports the connection ID, which is the same at both ends.
	ID() string

	// Peer reports the identity of the node at the other end.
	Peer() string

	// Send the message to the other end.
	Send(*Message) error

	// Receive the next message from the other end. Once the connection is
	// closed, Recv reports an error.
	Recv() (*Message, error)

	// Close the connection. After Close, both ends' Recv report an error.
	Close() error
}
