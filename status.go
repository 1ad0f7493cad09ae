// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

// Status describes the connection-forming activity of an endpoint.
type Status byte

const (
	// StatusWaiting is the initial status: the endpoint is not yet trying to
	// connect.
	StatusWaiting Status = iota

	// StatusConnecting means a dial is in progress.
	StatusConnecting

	// StatusConnected means at least one connection has opened.
	StatusConnected

	// StatusReady means the endpoint identity was registered with the
	// network. See also [Endpoint.Ready], which stays true once set.
	StatusReady
)

var statusStr = [...]string{
	StatusWaiting:    "waiting",
	StatusConnecting: "connecting",
	StatusConnected:  "connected",
	StatusReady:      "ready",
}

func (s Status) String() string {
	if int(s) < len(statusStr) {
		return statusStr[s]
	}
	return "invalid"
}
