// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
)

// Defaults used by DefaultConfig. The host settings refer to the public
// PeerJS signaling service.
const (
	DefaultHost           = "0.peerjs.com"
	DefaultPort           = 443
	DefaultPath           = "/"
	DefaultKey            = "peerjs"
	DefaultRetryTimeout   = 5 * time.Second
	DefaultCredentialsURL = "https://trinn.metered.live/api/v1/turn/credentials"
)

// Config carries the settings shared by the endpoints of a process. It must
// be populated with traversal credentials (see [Config.FetchCredentials])
// before it is used to construct an endpoint.
//
// A Config must not be modified after it has been used to construct an
// endpoint.
type Config struct {
	Host   string // signaling host
	Port   int    // signaling port
	Path   string // signaling path prefix
	Key    string // signaling API key
	Secure bool   // use TLS for signaling
	Debug  bool   // log every message exchanged

	// RetryTimeout is how long a controller waits before dialing again after
	// the remote was reported unavailable. If zero, DefaultRetryTimeout.
	RetryTimeout time.Duration

	// ICEServers are the traversal servers offered to the transport.
	ICEServers []ICEServer

	// CredentialsURL is the endpoint queried by FetchCredentials.
	// If empty, DefaultCredentialsURL is used.
	CredentialsURL string

	// HTTPClient is used by FetchCredentials. If nil, http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives diagnostic logs. If nil, logs are discarded.
	Logger *slog.Logger

	// Clock is used to schedule retries. If nil, the system clock.
	Clock clock.Clock
}

// DefaultConfig returns a config with default signaling settings and no
// traversal credentials.
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		Path:         DefaultPath,
		Key:          DefaultKey,
		Secure:       true,
		RetryTimeout: DefaultRetryTimeout,
	}
}

// check reports whether c can be used to construct an endpoint.
func (c *Config) check() error {
	if c == nil {
		return &ConfigError{Reason: "no configuration"}
	}
	if len(c.ICEServers) == 0 {
		return &ConfigError{Reason: "no traversal credentials loaded"}
	}
	if c.RetryTimeout < 0 {
		return &ConfigError{Reason: fmt.Sprintf("negative retry timeout %v", c.RetryTimeout)}
	}
	return nil
}

func (c *Config) retryTimeout() time.Duration {
	if c.RetryTimeout == 0 {
		return DefaultRetryTimeout
	}
	return c.RetryTimeout
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Config) clock() clock.Clock {
	if c.Clock == nil {
		return clock.New()
	}
	return c.Clock
}

// ICEServer describes a STUN or TURN server used for NAT traversal.
type ICEServer struct {
	URLs       []string `json:"urls" yaml:"urls"`
	Username   string   `json:"username,omitempty" yaml:"username,omitempty"`
	Credential string   `json:"credential,omitempty" yaml:"credential,omitempty"`
}

// UnmarshalJSON decodes an ICE server descriptor. As in the browser API, the
// "urls" field may be either a single string or an array of strings.
func (s *ICEServer) UnmarshalJSON(data []byte) error {
	var raw struct {
		URLs       json.RawMessage `json:"urls"`
		Username   string          `json:"username"`
		Credential string          `json:"credential"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var urls []string
	if len(raw.URLs) != 0 && raw.URLs[0] == '"' {
		var one string
		if err := json.Unmarshal(raw.URLs, &one); err != nil {
			return err
		}
		urls = []string{one}
	} else if len(raw.URLs) != 0 {
		if err := json.Unmarshal(raw.URLs, &urls); err != nil {
			return fmt.Errorf("invalid urls: %w", err)
		}
	}
	*s = ICEServer{URLs: urls, Username: raw.Username, Credential: raw.Credential}
	return nil
}
