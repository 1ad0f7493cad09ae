// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package peers provides support code for managing and testing endpoints.
package peers

import (
	"context"
	"fmt"
	"time"

	"github.com/creachadair/trinn"
	"github.com/creachadair/trinn/memnet"
)

// Local is a connected controller and remote on a private in-memory
// network, suitable for testing.
type Local struct {
	Network    *memnet.Network
	Controller *trinn.Controller
	Remote     *trinn.Remote
}

// Stop closes both endpoints and blocks until both have exited.
func (p *Local) Stop() error {
	cerr := p.Controller.Close()
	rerr := p.Remote.Close()
	if cerr != nil {
		return cerr
	}
	return rerr
}

// TestConfig returns a config suitable for endpoints on an in-memory
// network. Its traversal servers are placeholders, which the in-memory
// network ignores, and its retry timeout is short.
func TestConfig() *trinn.Config {
	cfg := trinn.DefaultConfig()
	cfg.ICEServers = []trinn.ICEServer{{URLs: []string{"stun:localhost:3478"}}}
	cfg.RetryTimeout = 10 * time.Millisecond
	return cfg
}

// NewLocal creates a remote and a controller for session on a new in-memory
// network, and blocks until both report the connection or ctx ends.
func NewLocal(ctx context.Context, session string) (*Local, error) {
	nw := memnet.New()
	cfg := TestConfig()

	rem, err := trinn.NewRemote(nw, cfg, session)
	if err != nil {
		return nil, err
	}
	ctl, err := trinn.NewController(nw, cfg, session, nil)
	if err != nil {
		rem.Close()
		return nil, err
	}
	p := &Local{Network: nw, Controller: ctl, Remote: rem}

	// Until the remote has registered, the controller may see it as
	// unavailable and retry.
	rok, cok := make(chan struct{}, 1), make(chan struct{}, 1)
	rsub := rem.OnConnection(func(string) { signal(rok) })
	csub := ctl.OnConnection(func(string) { signal(cok) })
	defer rsub.Cancel()
	defer csub.Cancel()

	for _, ch := range []chan struct{}{rok, cok} {
		select {
		case <-ch:
		case <-ctx.Done():
			p.Stop()
			return nil, fmt.Errorf("connect %q: %w", session, ctx.Err())
		}
	}
	return p, nil
}

func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
