// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package rtc

import (
	"github.com/creachadair/trinn"
	"github.com/pion/webrtc/v4"
)

// ICEServers converts traversal server descriptors into the form used by
// pion. Servers without URLs are skipped.
func ICEServers(servers []trinn.ICEServer) []webrtc.ICEServer {
	var out []webrtc.ICEServer
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// newAPI returns a pion API that includes loopback candidates, which are
// required for peers on the same host.
func newAPI() *webrtc.API {
	var se webrtc.SettingEngine
	se.SetIncludeLoopbackCandidate(true)
	return webrtc.NewAPI(webrtc.WithSettingEngine(se))
}
