// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package trinn implements a peer-to-peer link between a game "remote" and
// one or more "controllers" that drive it with key presses and data.
//
// A remote is the program that renders a game. A controller is a separate
// program, typically on another device, that sends the remote key press and
// release events and arbitrary JSON data. Both sides rendezvous through a
// signaling service using identities derived from a shared session name,
// then exchange JSON messages over a direct connection.
//
// # Endpoints
//
// The core types defined by this package are the [Remote] and the
// [Controller]. Both embed an [*Endpoint], which carries the connection set,
// the lifecycle [Status], and the callback registrations shared by both roles.
//
// Before creating endpoints, load a [Config] with traversal credentials:
//
//	cfg, err := trinn.Setup(ctx, apiKey)
//	if err != nil {
//	   log.Fatalf("Setup: %v", err)
//	}
//
// Endpoints are created on a [Network], which supplies the underlying
// transport. The rtc package provides a Network that uses WebRTC data
// channels and a PeerJS signaling server; the memnet package provides an
// in-memory Network for tests.
//
// # Remotes
//
// A remote registers under the deterministic identity "<session>-remote" (see
// [RemoteID]) and accepts inbound connections from controllers:
//
//	r, err := trinn.NewRemote(rtc.New(), cfg, "game7")
//	...
//	r.OnPress(func(key string) { ... })
//	r.OnRelease(func(key string) { ... })
//
// By default a remote admits any number of controllers. Use
// [Remote.SetMaxConnections] to limit the number admitted; connections beyond
// the limit are closed as soon as they arrive.
//
// # Controllers
//
// A controller registers under a fresh random identity (see [ControllerID])
// and dials the remote for its session:
//
//	c, err := trinn.NewController(rtc.New(), cfg, "game7", nil)
//	...
//	c.SendPress("ArrowUp")
//	c.SendRelease("ArrowUp")
//
// If the remote is not yet registered, the controller reports an error of
// type [ErrPeerUnavailable], invokes the optional unavailable hook, and dials
// again after [Config.RetryTimeout]. Use [Controller.StopRetrying] to cancel
// further attempts.
//
// Sending on an endpoint with no open connections is not an error; the
// message is silently discarded.
//
// # Callbacks
//
// Callbacks are registered with the On* methods of the endpoint. Each event
// has a single slot: registering a new callback replaces the previous one,
// and the returned [Subscription] can be used to remove it. Callbacks for an
// endpoint are invoked one at a time in the order their events occurred, on
// a goroutine owned by the endpoint; a callback must not block indefinitely.
//
// Registering OnCreate, OnConnection, or OnError after the corresponding
// event has already happened invokes the new callback once with the earlier
// result, so a caller does not miss events that raced with construction.
//
// # Metrics
//
// Endpoints maintain a collection of metrics while running. Use the
// [Endpoint.Metrics] method to obtain an [expvar.Map] containing the metrics
// exported by the endpoint. Metrics are shared globally among all endpoints.
//
// The metrics currently exported by endpoints include:
//
//   - messages_sent: counter of messages sent
//   - messages_received: counter of messages received
//   - messages_dropped: counter of messages received and discarded
//   - dials: counter of outbound connection attempts
//   - dial_retries: counter of retries scheduled after peer-unavailable
//   - dial_failures: counter of failed outbound connection attempts
//   - connections_active: gauge of open connections
//   - connections_accepted: counter of inbound connections admitted
//   - connections_rejected: counter of inbound connections refused
//   - transport_errors: counter of transport errors reported
//
// Additional metrics may be added in the future. It is safe for the caller to
// modify the metrics map to add, update, and remove entries.
package trinn
