// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package rtc implements a [trinn.Network] that connects endpoints with
// WebRTC data channels, using a PeerJS signaling server to register
// identities and exchange session descriptions.
//
// # Signaling
//
// A node holds a websocket connection to the signaling server at
//
//	ws[s]://<host>:<port><path>peerjs?key=<key>&id=<id>&token=<token>
//
// The server confirms the registration with an OPEN message, or rejects it
// with ID-TAKEN, INVALID-KEY or ERROR. The node sends a HEARTBEAT every few
// seconds to keep the registration alive.
//
// To dial, a node creates a peer connection with an ordered data channel
// labelled with a fresh connection ID, gathers its candidates, and sends an
// OFFER to the target. The target replies with an ANSWER. If the target is
// not registered, the server replies with EXPIRE, and the dial fails with a
// peer-unavailable error. CANDIDATE messages from peers that trickle their
// candidates are applied as they arrive. When a peer leaves, the server
// sends LEAVE, and connections to that peer are closed.
//
// # Messages
//
// Messages are sent as JSON text on the data channel, which matches the
// "json" serialization of PeerJS clients.
package rtc
