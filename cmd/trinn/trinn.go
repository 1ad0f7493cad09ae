// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Program trinn is a command-line utility for running trinn remotes and
// controllers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/trinn"
	"github.com/creachadair/trinn/rtc"
	"gopkg.in/yaml.v3"
)

var flags struct {
	Config string `flag:"config,Configuration file (YAML)"`
	APIKey string `flag:"api-key,API key for fetching traversal credentials"`
	Debug  bool   `flag:"debug,Log every message exchanged"`
}

var remoteFlags struct {
	Max int `flag:"max,default=-1,Maximum number of controllers admitted (-1 for no limit)"`
}

var controllerFlags struct {
	Data    string        `flag:"data,Send this JSON value after the keys"`
	Hold    time.Duration `flag:"hold,default=50ms,How long to hold each key"`
	Timeout time.Duration `flag:"timeout,default=30s,How long to wait for the remote"`
}

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: `Utilities for running trinn remotes and controllers.

Traversal credentials are fetched using the API key given by --api-key, the
configuration file, or the ` + apiKeyEnv + ` environment variable, unless the
configuration file lists its own ice-servers.`,

		SetFlags: command.Flags(flax.MustBind, &flags),

		Commands: []*command.C{
			{
				Name:     "remote",
				Usage:    "<session>",
				Help:     "Run a remote for the given session and print the events it receives.",
				SetFlags: command.Flags(flax.MustBind, &remoteFlags),
				Run:      runRemote,
			},
			{
				Name:  "controller",
				Usage: "<session> <key>...",
				Help: `Connect to the remote for the given session and press each key in turn.

Each key is pressed, held for --hold, and released. If --data is set, its
value is sent as a data message after the keys.`,
				SetFlags: command.Flags(flax.MustBind, &controllerFlags),
				Run:      runController,
			},
			{
				Name: "credentials",
				Help: "Print the traversal servers for the current configuration as YAML.",
				Run:  runCredentials,
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

// newNetwork returns the network used by endpoints of the CLI.
func newNetwork(fc *fileConfig) *rtc.Network {
	nw := rtc.New()
	nw.LocalOnly = fc.LocalOnly
	return nw
}

func runRemote(env *command.Env) error {
	if len(env.Args) != 1 {
		return env.Usagef("expected a session name")
	}
	session := env.Args[0]

	ctx, cancel := signal.NotifyContext(env.Context(), os.Interrupt)
	defer cancel()

	cfg, fc, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	r, err := trinn.NewRemote(newNetwork(fc), cfg, session)
	if err != nil {
		return err
	}
	defer r.Close()
	r.SetMaxConnections(remoteFlags.Max)

	r.OnCreate(func(id string) { fmt.Printf("registered %s\n", id) })
	r.OnConnection(func(peer string) { fmt.Printf("open %s\n", peer) })
	r.OnConnectionClose(func(peer string) { fmt.Printf("close %s\n", peer) })
	r.OnPress(func(key string) { fmt.Printf("press %q\n", key) })
	r.OnRelease(func(key string) { fmt.Printf("release %q\n", key) })
	r.OnData(func(obj json.RawMessage) { fmt.Printf("data %s\n", obj) })

	errc := make(chan *trinn.TransportError, 1)
	r.OnError(func(e *trinn.TransportError) {
		select {
		case errc <- e:
		default:
		}
	})

	select {
	case <-ctx.Done():
		return nil
	case e := <-errc:
		return e
	}
}

func runController(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("missing session name")
	}
	session, keys := env.Args[0], env.Args[1:]
	var data any
	if controllerFlags.Data != "" {
		if err := json.Unmarshal([]byte(controllerFlags.Data), &data); err != nil {
			return fmt.Errorf("invalid --data: %w", err)
		}
	} else if len(keys) == 0 {
		return env.Usagef("no keys or data to send")
	}

	ctx, cancel := signal.NotifyContext(env.Context(), os.Interrupt)
	defer cancel()

	cfg, fc, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	c, err := trinn.NewController(newNetwork(fc), cfg, session, func() {
		fmt.Fprintf(os.Stderr, "remote for %q is not available, retrying\n", session)
	})
	if err != nil {
		return err
	}
	defer c.Close()

	ready := make(chan struct{}, 1)
	c.OnConnection(func(string) {
		select {
		case ready <- struct{}{}:
		default:
		}
	})
	wctx, wcancel := context.WithTimeout(ctx, controllerFlags.Timeout)
	defer wcancel()
	select {
	case <-ready:
	case <-wctx.Done():
		if e := c.Err(); e != nil {
			return fmt.Errorf("connect to %s: %w", c.Target(), e)
		}
		return fmt.Errorf("connect to %s: %w", c.Target(), wctx.Err())
	}
	c.StopRetrying()

	for _, key := range keys {
		if err := c.SendPress(key); err != nil {
			return err
		}
		if err := sleep(ctx, controllerFlags.Hold); err != nil {
			return err
		}
		if err := c.SendRelease(key); err != nil {
			return err
		}
	}
	if data != nil {
		if err := c.SendData(data); err != nil {
			return err
		}
	}
	return nil
}

func runCredentials(env *command.Env) error {
	if len(env.Args) != 0 {
		return env.Usagef("extra arguments: %q", env.Args)
	}
	cfg, _, err := loadConfig(env.Context())
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(map[string]any{"ice-servers": cfg.ICEServers})
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.New("interrupted")
	case <-t.C:
		return nil
	}
}
