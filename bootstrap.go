// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxCredentialsSize bounds the size of a credentials response body.
const maxCredentialsSize = 1 << 20

// Setup returns a default config populated with traversal credentials
// fetched using apiKey. It must complete before any endpoint is constructed
// with the resulting config.
func Setup(ctx context.Context, apiKey string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.FetchCredentials(ctx, apiKey); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FetchCredentials fetches a list of traversal servers from the credentials
// endpoint and stores it in c.ICEServers, replacing any previous value.
func (c *Config) FetchCredentials(ctx context.Context, apiKey string) error {
	base := c.CredentialsURL
	if base == "" {
		base = DefaultCredentialsURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid credentials URL: %w", err)
	}
	q := u.Query()
	q.Set("apiKey", apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("fetch credentials: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	cli := c.HTTPClient
	if cli == nil {
		cli = http.DefaultClient
	}
	rsp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("fetch credentials: %w", err)
	}
	defer rsp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(rsp.Body, maxCredentialsSize))
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return fmt.Errorf("fetch credentials: %s", rsp.Status)
	}

	var servers []ICEServer
	if err := json.Unmarshal(body, &servers); err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}
	if len(servers) == 0 {
		return errors.New("fetch credentials: empty server list")
	}
	c.ICEServers = servers
	c.logger().Debug("loaded traversal credentials", "servers", len(servers))
	return nil
}
