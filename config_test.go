// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creachadair/trinn"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := trinn.DefaultConfig()
	if cfg.Host != trinn.DefaultHost || cfg.Port != trinn.DefaultPort || !cfg.Secure {
		t.Errorf("DefaultConfig: got %+v", cfg)
	}
	if len(cfg.ICEServers) != 0 {
		t.Errorf("DefaultConfig has ICE servers: %v", cfg.ICEServers)
	}
}

func TestICEServerJSON(t *testing.T) {
	const input = `[
	  {"urls": "stun:stun.example.com:80"},
	  {"urls": ["turn:t.example.com:80", "turn:t.example.com:443?transport=tcp"],
	   "username": "user", "credential": "pass"}
	]`
	var got []trinn.ICEServer
	if err := json.Unmarshal([]byte(input), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []trinn.ICEServer{
		{URLs: []string{"stun:stun.example.com:80"}},
		{URLs: []string{"turn:t.example.com:80", "turn:t.example.com:443?transport=tcp"},
			Username: "user", Credential: "pass"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ICE servers (-want, +got):\n%s", diff)
	}

	var bad trinn.ICEServer
	if err := json.Unmarshal([]byte(`{"urls": 17}`), &bad); err == nil {
		t.Errorf("Unmarshal bad urls: got %+v, want error", bad)
	}
}

func credServer(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &keys
}

func TestFetchCredentials(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		srv, keys := credServer(t, http.StatusOK,
			`[{"urls":"stun:stun.example.com:80"},{"urls":"turn:t.example.com:80","username":"u","credential":"c"}]`)
		cfg := trinn.DefaultConfig()
		cfg.CredentialsURL = srv.URL + "/api/v1/turn/credentials"
		if err := cfg.FetchCredentials(t.Context(), "secret key"); err != nil {
			t.Fatalf("FetchCredentials: %v", err)
		}
		if len(cfg.ICEServers) != 2 {
			t.Errorf("ICE servers: got %d, want 2", len(cfg.ICEServers))
		}
		if diff := cmp.Diff([]string{"secret key"}, *keys); diff != "" {
			t.Errorf("API keys (-want, +got):\n%s", diff)
		}
	})

	tests := []struct {
		name   string
		status int
		body   string
		etext  string
	}{
		{"Forbidden", http.StatusForbidden, `{"error":"bad key"}`, "403"},
		{"Empty", http.StatusOK, `[]`, "empty server list"},
		{"Garbage", http.StatusOK, `<html>`, "parse credentials"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := credServer(t, tc.status, tc.body)
			cfg := trinn.DefaultConfig()
			cfg.CredentialsURL = srv.URL
			err := cfg.FetchCredentials(t.Context(), "k")
			if err == nil || !strings.Contains(err.Error(), tc.etext) {
				t.Errorf("FetchCredentials: got %v, want error containing %q", err, tc.etext)
			}
			if len(cfg.ICEServers) != 0 {
				t.Errorf("ICE servers set after failure: %v", cfg.ICEServers)
			}
		})
	}
}
