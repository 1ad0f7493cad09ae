// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/creachadair/trinn"
	"gopkg.in/yaml.v3"
)

// fileConfig is the format of the YAML configuration file. Fields that are
// not set keep their default values.
type fileConfig struct {
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	Path           string            `yaml:"path"`
	Key            string            `yaml:"key"`
	Insecure       bool              `yaml:"insecure"`
	RetryTimeout   time.Duration     `yaml:"retry-timeout"`
	APIKey         string            `yaml:"api-key"`
	CredentialsURL string            `yaml:"credentials-url"`
	ICEServers     []trinn.ICEServer `yaml:"ice-servers"`

	// If set, connect using host candidates only.
	LocalOnly bool `yaml:"local-only"`
}

// readConfig decodes a configuration file from r. Unknown fields are an
// error.
func readConfig(r io.Reader) (*fileConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var fc fileConfig
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if fc.Port < 0 || fc.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", fc.Port)
	}
	return &fc, nil
}

// apply updates cfg with the settings of fc.
func (fc *fileConfig) apply(cfg *trinn.Config) {
	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.Path != "" {
		cfg.Path = fc.Path
	}
	if fc.Key != "" {
		cfg.Key = fc.Key
	}
	if fc.Insecure {
		cfg.Secure = false
	}
	if fc.RetryTimeout > 0 {
		cfg.RetryTimeout = fc.RetryTimeout
	}
	if fc.CredentialsURL != "" {
		cfg.CredentialsURL = fc.CredentialsURL
	}
	if len(fc.ICEServers) != 0 {
		cfg.ICEServers = fc.ICEServers
	}
}

// loadConfig constructs a config from the settings file (if any) and the
// global flags. Traversal credentials are fetched unless the file lists its
// own servers.
func loadConfig(ctx context.Context) (*trinn.Config, *fileConfig, error) {
	fc := new(fileConfig)
	if flags.Config != "" {
		f, err := os.Open(flags.Config)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		fc, err = readConfig(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", flags.Config, err)
		}
	}

	cfg := trinn.DefaultConfig()
	fc.apply(cfg)
	cfg.Debug = flags.Debug
	level := slog.LevelInfo
	if flags.Debug {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if len(cfg.ICEServers) == 0 {
		key := apiKey(fc)
		if key == "" {
			return nil, nil, errors.New("no traversal servers configured and no API key (use --api-key or " + apiKeyEnv + ")")
		}
		if err := cfg.FetchCredentials(ctx, key); err != nil {
			return nil, nil, err
		}
	}
	return cfg, fc, nil
}

// apiKeyEnv is the environment variable consulted for an API key when none
// is given by flag or configuration file.
const apiKeyEnv = "TRINN_API_KEY"

// apiKey returns the API key to use for fetching credentials, in order of
// precedence: the --api-key flag, the config file, the environment.
func apiKey(fc *fileConfig) string {
	if flags.APIKey != "" {
		return flags.APIKey
	} else if fc.APIKey != "" {
		return fc.APIKey
	}
	return os.Getenv(apiKeyEnv)
}
