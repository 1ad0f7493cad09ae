// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn_test

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/creachadair/trinn"
	"github.com/creachadair/trinn/memnet"
	"github.com/creachadair/trinn/peers"
	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
)

// A recorder collects the events reported to endpoint callbacks.
type recorder struct {
	μ   sync.Mutex
	log []string
}

func (r *recorder) add(format string, args ...any) {
	r.μ.Lock()
	defer r.μ.Unlock()
	r.log = append(r.log, fmt.Sprintf(format, args...))
}

func (r *recorder) get() []string {
	r.μ.Lock()
	defer r.μ.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) len() int {
	r.μ.Lock()
	defer r.μ.Unlock()
	return len(r.log)
}

// waitFor blocks until cond reports true, or fails t after a timeout.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// gatedNet delays registrations until its gate is closed, so that tests can
// subscribe to an endpoint before anything happens.
type gatedNet struct {
	trinn.Network
	gate chan struct{}
}

func newGatedNet(nw trinn.Network) gatedNet { return gatedNet{Network: nw, gate: make(chan struct{})} }

func (g gatedNet) open() { close(g.gate) }

func (g gatedNet) Listen(ctx context.Context, id string, cfg *trinn.Config) (trinn.Node, error) {
	select {
	case <-g.gate:
		return g.Network.Listen(ctx, id, cfg)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func testConfig(t *testing.T) *trinn.Config {
	cfg := peers.TestConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg.Debug = true
	return cfg
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(data []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(data), "\n"))
	return len(data), nil
}

func mustRemote(t *testing.T, nw trinn.Network, cfg *trinn.Config, session string) *trinn.Remote {
	t.Helper()
	r, err := trinn.NewRemote(nw, cfg, session)
	if err != nil {
		t.Fatalf("NewRemote(%q): %v", session, err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func mustController(t *testing.T, nw trinn.Network, cfg *trinn.Config, session string, hook func()) *trinn.Controller {
	t.Helper()
	c, err := trinn.NewController(nw, cfg, session, hook)
	if err != nil {
		t.Fatalf("NewController(%q): %v", session, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func connected(e interface{ Status() trinn.Status }) func() bool {
	return func() bool { return e.Status() == trinn.StatusConnected }
}

func metric(m *expvar.Map, name string) int64 { return m.Get(name).(*expvar.Int).Value() }

func TestGame7(t *testing.T) {
	t.Cleanup(leaktest.Check(t)) // runs after endpoint cleanups

	nw := memnet.New()
	cfg := testConfig(t)

	var rlog, clog recorder
	rem := mustRemote(t, nw, cfg, "game7")
	rem.OnConnection(func(peer string) { rlog.add("open %s", peer) })
	rem.OnPress(func(key string) { rlog.add("press %s", key) })
	rem.OnRelease(func(key string) { rlog.add("release %s", key) })
	rem.OnData(func(obj json.RawMessage) { rlog.add("data %s", obj) })
	waitFor(t, "remote ready", rem.Ready)
	if got := rem.ID(); got != "game7-remote" {
		t.Errorf("Remote ID: got %q, want game7-remote", got)
	}

	sent := metric(rem.Metrics(), "messages_sent")
	ctl := mustController(t, nw, cfg, "game7", func() { t.Error("Remote reported unavailable") })
	ctl.OnConnection(func(id string) { clog.add("open %s", id) })
	ctl.OnData(func(obj json.RawMessage) { clog.add("data %s", obj) })
	waitFor(t, "controller connected", connected(ctl))
	if got := ctl.Target(); got != "game7-remote" {
		t.Errorf("Target: got %q, want game7-remote", got)
	}

	if err := ctl.SendPress("ArrowUp"); err != nil {
		t.Errorf("SendPress: %v", err)
	}
	if err := ctl.SendRelease("ArrowUp"); err != nil {
		t.Errorf("SendRelease: %v", err)
	}
	if err := ctl.SendData(map[string]int{"level": 7}); err != nil {
		t.Errorf("SendData: %v", err)
	}
	waitFor(t, "remote connected", connected(rem))
	if err := rem.SendData("pong"); err != nil {
		t.Errorf("Remote SendData: %v", err)
	}

	waitFor(t, "events", func() bool { return rlog.len() == 4 && clog.len() == 2 })
	if diff := cmp.Diff([]string{
		"open " + ctl.ID(), "press ArrowUp", "release ArrowUp", `data {"level":7}`,
	}, rlog.get()); diff != "" {
		t.Errorf("Remote events (-want, +got):\n%s", diff)
	}
	// The controller reports its own identity for its connection.
	if diff := cmp.Diff([]string{"open " + ctl.ID(), `data "pong"`}, clog.get()); diff != "" {
		t.Errorf("Controller events (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{ctl.ID()}, rem.Peers()); diff != "" {
		t.Errorf("Remote peers (-want, +got):\n%s", diff)
	}
	if got := metric(rem.Metrics(), "messages_sent") - sent; got != 4 {
		t.Errorf("Messages sent: got %d, want 4", got)
	}
}

func TestWire(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	nw.Wire = true
	cfg := testConfig(t)

	keys := make(chan string, 1)
	rem := mustRemote(t, nw, cfg, "wired")
	rem.OnPress(func(key string) { keys <- key })
	waitFor(t, "remote ready", rem.Ready)

	ctl := mustController(t, nw, cfg, "wired", nil)
	waitFor(t, "controller connected", connected(ctl))
	if err := ctl.SendPress("Enter"); err != nil {
		t.Fatalf("SendPress: %v", err)
	}
	select {
	case key := <-keys:
		if key != "Enter" {
			t.Errorf("Press: got %q, want Enter", key)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for press")
	}
}

func TestStatus(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	gn := newGatedNet(memnet.New())
	cfg := testConfig(t)

	var rst, c1st recorder
	rem := mustRemote(t, gn, cfg, "status")
	rem.OnStatusChange(func(s trinn.Status) { rst.add("%v", s) })
	if got := rem.Status(); got != trinn.StatusWaiting {
		t.Errorf("Initial status: got %v, want %v", got, trinn.StatusWaiting)
	}
	gn.open()
	waitFor(t, "remote ready", rem.Ready)

	c1 := mustController(t, gn, cfg, "status", nil)
	c1.OnStatusChange(func(s trinn.Status) { c1st.add("%v", s) })
	waitFor(t, "first controller connected", connected(c1))

	// A second connection does not repeat the connected notification.
	c2 := mustController(t, gn, cfg, "status", nil)
	waitFor(t, "second controller connected", connected(c2))
	waitFor(t, "remote peers", func() bool { return len(rem.Peers()) == 2 })
	waitFor(t, "status events", func() bool {
		got := c1st.get()
		return rst.len() >= 2 && len(got) != 0 && got[len(got)-1] == "connected"
	})

	if diff := cmp.Diff([]string{"ready", "connected"}, rst.get()); diff != "" {
		t.Errorf("Remote status (-want, +got):\n%s", diff)
	}

	// The first controller subscribed after the gate opened, so it may have
	// missed its ready notification, but never a later one.
	got := c1st.get()
	if len(got) != 0 && got[0] == "ready" {
		got = got[1:]
	}
	if len(got) != 0 && got[0] == "connecting" {
		got = got[1:]
	}
	if diff := cmp.Diff([]string{"connected"}, got); diff != "" {
		t.Errorf("Controller status (-want, +got):\n%s", diff)
	}
}

func TestControllerStatus(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	gn := newGatedNet(nw)
	cfg := testConfig(t)
	rem := mustRemote(t, nw, cfg, "cs")
	waitFor(t, "remote ready", rem.Ready)

	var st recorder
	ctl := mustController(t, gn, cfg, "cs", nil)
	ctl.OnStatusChange(func(s trinn.Status) { st.add("%v", s) })
	gn.open()
	waitFor(t, "controller connected", connected(ctl))
	waitFor(t, "status events", func() bool { return st.len() == 3 })

	if diff := cmp.Diff([]string{"ready", "connecting", "connected"}, st.get()); diff != "" {
		t.Errorf("Status (-want, +got):\n%s", diff)
	}
	if !ctl.Ready() {
		t.Error("Controller is connected but not ready")
	}
}

func TestRetry(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	mock := clock.NewMock()
	cfg := testConfig(t)
	cfg.Clock = mock
	cfg.RetryTimeout = 5 * time.Second

	unavail := make(chan struct{}, 10)
	var errs recorder
	ctl := mustController(t, nw, cfg, "late", func() { unavail <- struct{}{} })
	ctl.OnError(func(err *trinn.TransportError) { errs.add("%s", err.Type) })

	wait := func(n int) {
		t.Helper()
		select {
		case <-unavail:
		case <-time.After(10 * time.Second):
			t.Fatalf("Timed out waiting for unavailable %d", n)
		}
		if got := nw.Dials("late-remote"); got != n {
			t.Errorf("Dials: got %d, want %d", got, n)
		}
	}

	// With no remote, each dial fails and is retried after the timeout.
	wait(1)
	if got := ctl.Status(); got != trinn.StatusConnecting {
		t.Errorf("Status: got %v, want %v", got, trinn.StatusConnecting)
	}
	if err := ctl.Err(); err == nil || err.Type != trinn.ErrPeerUnavailable {
		t.Errorf("Err: got %v, want peer-unavailable", err)
	}
	mock.Add(4 * time.Second)
	if got := nw.Dials("late-remote"); got != 1 {
		t.Errorf("Dials before timeout: got %d, want 1", got)
	}
	mock.Add(1 * time.Second)
	wait(2)

	// Once the remote appears, the next retry connects.
	rem := mustRemote(t, nw, cfg, "late")
	waitFor(t, "remote ready", rem.Ready)
	mock.Add(5 * time.Second)
	waitFor(t, "controller connected", connected(ctl))
	if got := nw.Dials("late-remote"); got != 3 {
		t.Errorf("Dials: got %d, want 3", got)
	}

	// No further retries occur once connected.
	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if got := nw.Dials("late-remote"); got != 3 {
		t.Errorf("Dials after connect: got %d, want 3", got)
	}
	if diff := cmp.Diff([]string{"peer-unavailable", "peer-unavailable"}, errs.get()); diff != "" {
		t.Errorf("Errors (-want, +got):\n%s", diff)
	}
}

func TestStopRetrying(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	mock := clock.NewMock()
	cfg := testConfig(t)
	cfg.Clock = mock

	unavail := make(chan struct{}, 10)
	ctl := mustController(t, nw, cfg, "never", func() { unavail <- struct{}{} })
	select {
	case <-unavail:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for unavailable")
	}
	ctl.StopRetrying()
	mock.Add(time.Hour)
	time.Sleep(20 * time.Millisecond)
	if got := nw.Dials("never-remote"); got != 1 {
		t.Errorf("Dials after StopRetrying: got %d, want 1", got)
	}
}

func TestCloseStopsRetry(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	mock := clock.NewMock()
	cfg := testConfig(t)
	cfg.Clock = mock

	unavail := make(chan struct{}, 10)
	ctl, err := trinn.NewController(nw, cfg, "gone", func() { unavail <- struct{}{} })
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	<-unavail
	if err := ctl.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := ctl.Close(); err != nil {
		t.Errorf("Second Close: %v", err)
	}
	mock.Add(time.Hour)
	time.Sleep(20 * time.Millisecond)
	if got := nw.Dials("gone-remote"); got != 1 {
		t.Errorf("Dials after Close: got %d, want 1", got)
	}
	if got := nw.Nodes(); len(got) != 0 {
		t.Errorf("Nodes after Close: %v", got)
	}
}

func TestMaxConnections(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	cfg := testConfig(t)

	var rlog, c2log recorder
	rem := mustRemote(t, nw, cfg, "solo")
	if got := rem.MaxConnections(); got != -1 {
		t.Errorf("Default MaxConnections: got %d, want -1", got)
	}
	rem.SetMaxConnections(1)
	rem.OnConnection(func(peer string) { rlog.add("open %s", peer) })
	waitFor(t, "remote ready", rem.Ready)

	rejected := metric(rem.Metrics(), "connections_rejected")
	c1 := mustController(t, nw, cfg, "solo", nil)
	waitFor(t, "first controller connected", connected(c1))
	waitFor(t, "remote connected", connected(rem))

	gn := newGatedNet(nw)
	c2 := mustController(t, gn, cfg, "solo", nil)
	c2.OnConnectionClose(func(id string) { c2log.add("close %s", id) })
	gn.open()
	waitFor(t, "second connection closed", func() bool { return c2log.len() == 1 })

	if got := c2log.get()[0]; !strings.HasPrefix(got, "close dc_") {
		t.Errorf("Controller close event: got %q, want a connection ID", got)
	}
	if diff := cmp.Diff([]string{"open " + c1.ID()}, rlog.get()); diff != "" {
		t.Errorf("Remote events (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{c1.ID()}, rem.Peers()); diff != "" {
		t.Errorf("Remote peers (-want, +got):\n%s", diff)
	}
	if got := metric(rem.Metrics(), "connections_rejected") - rejected; got != 1 {
		t.Errorf("Rejected connections: got %d, want 1", got)
	}
	if got := c2.Peers(); len(got) != 0 {
		t.Errorf("Rejected controller peers: got %v, want none", got)
	}

	// Lowering the limit does not evict, and a negative limit is unbounded.
	rem.SetMaxConnections(0)
	if diff := cmp.Diff([]string{c1.ID()}, rem.Peers()); diff != "" {
		t.Errorf("Remote peers after lowering (-want, +got):\n%s", diff)
	}
	rem.SetMaxConnections(-7)
	if got := rem.MaxConnections(); got != -1 {
		t.Errorf("MaxConnections: got %d, want -1", got)
	}
}

func TestSendNoConnections(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	cfg := testConfig(t)
	rem := mustRemote(t, nw, cfg, "empty")
	if err := rem.SendData(map[string]bool{"ok": true}); err != nil {
		t.Errorf("SendData before ready: %v", err)
	}
	waitFor(t, "remote ready", rem.Ready)
	if err := rem.SendData([]int{1, 2, 3}); err != nil {
		t.Errorf("SendData with no connections: %v", err)
	}
	if err := rem.SendData(func() {}); err == nil {
		t.Error("SendData(func): got nil error")
	}
}

func TestLateRegistration(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	cfg := testConfig(t)
	rem := mustRemote(t, nw, cfg, "late-reg")
	waitFor(t, "remote ready", rem.Ready)
	c1 := mustController(t, nw, cfg, "late-reg", nil)
	c2 := mustController(t, nw, cfg, "late-reg", nil)
	waitFor(t, "remote peers", func() bool { return len(rem.Peers()) == 2 })

	var log recorder
	rem.OnCreate(func(id string) { log.add("create %s", id) })
	waitFor(t, "create replay", func() bool { return log.len() == 1 })
	rem.OnConnection(func(peer string) { log.add("open %s", peer) })
	waitFor(t, "connection replay", func() bool { return log.len() == 3 })

	got := log.get()
	if got[0] != "create late-reg-remote" {
		t.Errorf("Create replay: got %q", got[0])
	}
	want := map[string]bool{"open " + c1.ID(): true, "open " + c2.ID(): true}
	for _, ev := range got[1:] {
		if !want[ev] {
			t.Errorf("Unexpected connection replay %q", ev)
		}
		delete(want, ev)
	}

	// A late error subscriber receives the recorded error.
	dup := mustRemote(t, nw, cfg, "late-reg")
	waitFor(t, "duplicate error", func() bool { return dup.Err() != nil })
	errc := make(chan *trinn.TransportError, 1)
	dup.OnError(func(err *trinn.TransportError) { errc <- err })
	select {
	case err := <-errc:
		if err.Type != trinn.ErrUnavailableID {
			t.Errorf("Error type: got %q, want %q", err.Type, trinn.ErrUnavailableID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for error replay")
	}
	if dup.Ready() {
		t.Error("Duplicate remote reports ready")
	}
}

func TestUnknownKind(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	cfg := testConfig(t)
	keys := make(chan string, 2)
	rem := mustRemote(t, nw, cfg, "odd")
	rem.OnPress(func(key string) { keys <- key })
	waitFor(t, "remote ready", rem.Ready)

	raw, err := nw.Listen(t.Context(), "odd-raw", cfg)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer raw.Close()
	conn, err := raw.Dial(t.Context(), "odd-remote")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	dropped := metric(rem.Metrics(), "messages_dropped")
	if err := conn.Send(&trinn.Message{Key: "x", Type: "wiggle"}); err != nil {
		t.Fatalf("Send unknown: %v", err)
	}
	if err := conn.Send(trinn.Press("y")); err != nil {
		t.Fatalf("Send press: %v", err)
	}
	select {
	case key := <-keys:
		if key != "y" {
			t.Errorf("Press: got %q, want y", key)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for press")
	}
	if got := metric(rem.Metrics(), "messages_dropped") - dropped; got != 1 {
		t.Errorf("Dropped: got %d, want 1", got)
	}
}

func TestControllerIgnoresKeys(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	cfg := testConfig(t)
	fake, err := nw.Listen(t.Context(), "keys-remote", cfg)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer fake.Close()

	data := make(chan string, 2)
	ctl := mustController(t, nw, cfg, "keys", nil)
	ctl.OnData(func(obj json.RawMessage) { data <- string(obj) })

	conn, err := fake.Accept(t.Context())
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer conn.Close()
	if got := conn.Peer(); got != ctl.ID() {
		t.Errorf("Peer: got %q, want %q", got, ctl.ID())
	}

	dm, _ := trinn.Data(17)
	for _, m := range []*trinn.Message{trinn.Press("a"), trinn.Release("a"), dm} {
		if err := conn.Send(m); err != nil {
			t.Fatalf("Send %v: %v", m, err)
		}
	}
	select {
	case got := <-data:
		if got != "17" {
			t.Errorf("Data: got %q, want 17", got)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for data")
	}
}

func TestCancel(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	loc, err := peers.NewLocal(t.Context(), "cancel")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer loc.Stop()

	var log recorder
	released := make(chan struct{})
	sub := loc.Remote.OnPress(func(key string) { log.add("press %s", key) })
	loc.Remote.OnRelease(func(key string) { log.add("release %s", key); close(released) })

	sub.Cancel()
	loc.Controller.SendPress("q")
	loc.Controller.SendRelease("q")
	<-released

	if diff := cmp.Diff([]string{"release q"}, log.get()); diff != "" {
		t.Errorf("Events (-want, +got):\n%s", diff)
	}
}

func TestConnectionClose(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	nw := memnet.New()
	cfg := testConfig(t)
	rem := mustRemote(t, nw, cfg, "bye")
	waitFor(t, "remote ready", rem.Ready)

	var rlog, clog recorder
	rem.OnConnectionClose(func(peer string) { rlog.add("close %s", peer) })
	ctl, err := trinn.NewController(nw, cfg, "bye", nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	ctl.OnConnectionClose(func(id string) { clog.add("close %s", id) })
	waitFor(t, "remote connected", connected(rem))
	cid := ctl.ID()

	// Closing the controller is observed by the remote, which reports the
	// controller identity.
	if err := ctl.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	waitFor(t, "remote close event", func() bool { return rlog.len() == 1 })
	if diff := cmp.Diff([]string{"close " + cid}, rlog.get()); diff != "" {
		t.Errorf("Remote events (-want, +got):\n%s", diff)
	}
	if got := rem.Peers(); len(got) != 0 {
		t.Errorf("Remote peers after close: %v", got)
	}

	// No callbacks are delivered after Close returns.
	time.Sleep(20 * time.Millisecond)
	if got := clog.get(); len(got) > 1 {
		t.Errorf("Controller events after close: %v", got)
	}
}

func TestCallbackPanic(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	loc, err := peers.NewLocal(t.Context(), "panic")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer loc.Stop()

	done := make(chan string, 1)
	loc.Remote.OnPress(func(key string) { panic("callback failed") })
	loc.Remote.OnRelease(func(key string) { done <- key })
	loc.Controller.SendPress("p")
	loc.Controller.SendRelease("p")
	select {
	case key := <-done:
		if key != "p" {
			t.Errorf("Release: got %q, want p", key)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for release after panic")
	}
}

func TestLogMessages(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	loc, err := peers.NewLocal(t.Context(), "logged")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer loc.Stop()

	var clog, rlog recorder
	loc.Controller.LogMessages(func(m trinn.MessageInfo) { clog.add("%v %s", m.Sent, m.Type) })
	loc.Remote.LogMessages(func(m trinn.MessageInfo) { rlog.add("%v %s", m.Sent, m.Type) })

	loc.Controller.SendPress("k")
	waitFor(t, "remote log", func() bool { return rlog.len() == 1 })
	loc.Remote.LogMessages(nil)

	if diff := cmp.Diff([]string{"true press"}, clog.get()); diff != "" {
		t.Errorf("Controller log (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"false press"}, rlog.get()); diff != "" {
		t.Errorf("Remote log (-want, +got):\n%s", diff)
	}
}

func TestConstructorErrors(t *testing.T) {
	nw := memnet.New()
	good := testConfig(t)
	noCreds := trinn.DefaultConfig()
	negative := testConfig(t)
	negative.RetryTimeout = -time.Second

	tests := []struct {
		name    string
		nw      trinn.Network
		cfg     *trinn.Config
		session string
		check   func(error) bool
	}{
		{"BadSession", nw, good, "bad session", isValidation},
		{"EmptySession", nw, good, "", isValidation},
		{"NoCredentials", nw, noCreds, "ok", isConfig},
		{"NilConfig", nw, nil, "ok", isConfig},
		{"NegativeRetry", nw, negative, "ok", isConfig},
		{"NilNetwork", nil, good, "ok", isConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if r, err := trinn.NewRemote(tc.nw, tc.cfg, tc.session); !tc.check(err) {
				t.Errorf("NewRemote: got %v, %v; want error", r, err)
			}
			if c, err := trinn.NewController(tc.nw, tc.cfg, tc.session, nil); !tc.check(err) {
				t.Errorf("NewController: got %v, %v; want error", c, err)
			}
		})
	}
	if got := nw.Nodes(); len(got) != 0 {
		t.Errorf("Nodes registered by failed constructors: %v", got)
	}
}

func isConfig(err error) bool {
	var ce *trinn.ConfigError
	return errors.As(err, &ce)
}
