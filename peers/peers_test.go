// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package peers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/creachadair/trinn"
	"github.com/creachadair/trinn/peers"
	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
)

func TestLocal(t *testing.T) {
	defer leaktest.Check(t)()

	loc, err := peers.NewLocal(t.Context(), "game7")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	keys := make(chan string, 2)
	loc.Remote.OnPress(func(key string) { keys <- "+" + key })
	loc.Remote.OnRelease(func(key string) { keys <- "-" + key })
	data := make(chan json.RawMessage, 1)
	loc.Controller.OnData(func(obj json.RawMessage) { data <- obj })

	if err := loc.Controller.SendPress("space"); err != nil {
		t.Errorf("SendPress: %v", err)
	}
	if err := loc.Controller.SendRelease("space"); err != nil {
		t.Errorf("SendRelease: %v", err)
	}
	if err := loc.Remote.SendData(map[string]int{"score": 3}); err != nil {
		t.Errorf("SendData: %v", err)
	}

	got := []string{<-keys, <-keys}
	if diff := cmp.Diff([]string{"+space", "-space"}, got); diff != "" {
		t.Errorf("Keys (-want, +got):\n%s", diff)
	}
	if obj := <-data; string(obj) != `{"score":3}` {
		t.Errorf("Data: got %#q, want score", obj)
	}

	if err := loc.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestLocalTimeout(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	loc, err := peers.NewLocal(ctx, "game7")
	if err == nil {
		// The endpoints may have connected before the context was checked.
		loc.Stop()
		t.Skip("endpoints connected before cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("NewLocal: got %v, want %v", err, context.Canceled)
	}
}

func TestLocalInvalid(t *testing.T) {
	_, err := peers.NewLocal(t.Context(), "no spaces")
	var ve *trinn.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("NewLocal: got %v, want %T", err, ve)
	}
}

func TestConfig(t *testing.T) {
	cfg := peers.TestConfig()
	if len(cfg.ICEServers) == 0 {
		t.Error("TestConfig has no ICE servers")
	}
	if cfg.RetryTimeout <= 0 || cfg.RetryTimeout > time.Second {
		t.Errorf("TestConfig retry timeout: got %v", cfg.RetryTimeout)
	}
}
