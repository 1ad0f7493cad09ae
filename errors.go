// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"errors"
	"fmt"
)

// Error types reported by a transport in TransportError.Type. The names match
// those used by PeerJS servers and clients.
const (
	ErrBrowserIncompatible = "browser-incompatible"
	ErrDisconnected        = "disconnected"
	ErrInvalidID           = "invalid-id"
	ErrInvalidKey          = "invalid-key"
	ErrNetwork             = "network"
	ErrPeerUnavailable     = "peer-unavailable"
	ErrSSLUnavailable      = "ssl-unavailable"
	ErrServerError         = "server-error"
	ErrSocketError         = "socket-error"
	ErrSocketClosed        = "socket-closed"
	ErrUnavailableID       = "unavailable-id"
	ErrWebRTC              = "webrtc"
)

// TransportError is the concrete type of errors reported by a transport.
// Only the type ErrPeerUnavailable is interpreted by this package; all other
// errors are recorded and reported to the caller.
type TransportError struct {
	Name    string // a short name for the error, e.g., "Error"
	Message string // a human-readable description
	Type    string // one of the Err* type constants

	Err error // the underlying error, if any
}

// Error satisfies the error interface.
func (e *TransportError) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap reports the underlying error of e, which may be nil.
func (e *TransportError) Unwrap() error { return e.Err }

// PeerUnavailable returns a TransportError reporting that no endpoint with
// the given identity is reachable.
func PeerUnavailable(id string) *TransportError {
	return &TransportError{
		Name:    "Error",
		Message: "Could not connect to peer " + id,
		Type:    ErrPeerUnavailable,
	}
}

// IsPeerUnavailable reports whether err is or wraps a TransportError whose
// type is ErrPeerUnavailable.
func IsPeerUnavailable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Type == ErrPeerUnavailable
}

// asTransportError converts err into a *TransportError. Errors not already of
// that type are classified as ErrNetwork.
func asTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Name: "Error", Message: err.Error(), Type: ErrNetwork, Err: err}
}

// ConfigError is reported when an endpoint is constructed with an unusable
// configuration, for example before traversal credentials have been loaded.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Reason }

// ValidationError is reported when an identity contains characters outside
// the set [A-Za-z0-9_-].
type ValidationError struct {
	ID string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid identity %q", e.ID) }
