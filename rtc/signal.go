// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package rtc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/creachadair/trinn"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Signaling message types exchanged with the server.
const (
	msgOpen       = "OPEN"
	msgError      = "ERROR"
	msgIDTaken    = "ID-TAKEN"
	msgInvalidKey = "INVALID-KEY"
	msgOffer      = "OFFER"
	msgAnswer     = "ANSWER"
	msgCandidate  = "CANDIDATE"
	msgExpire     = "EXPIRE"
	msgLeave      = "LEAVE"
	msgHeartbeat  = "HEARTBEAT"
)

// An envelope is a single signaling message. Src and Dst are endpoint
// identities; the server fills in Src on relayed messages.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Src     string          `json:"src,omitempty"`
	Dst     string          `json:"dst,omitempty"`
}

func (e envelope) String() string {
	return fmt.Sprintf("%s(%s → %s, %d bytes)", e.Type, e.Src, e.Dst, len(e.Payload))
}

// offerPayload is the payload of an OFFER message.
type offerPayload struct {
	SDP           webrtc.SessionDescription `json:"sdp"`
	Type          string                    `json:"type"` // always "data"
	ConnectionID  string                    `json:"connectionId"`
	Label         string                    `json:"label,omitempty"`
	Serialization string                    `json:"serialization,omitempty"`
	Reliable      bool                      `json:"reliable"`
	Browser       string                    `json:"browser,omitempty"`
}

// answerPayload is the payload of an ANSWER message.
type answerPayload struct {
	SDP          webrtc.SessionDescription `json:"sdp"`
	Type         string                    `json:"type"`
	ConnectionID string                    `json:"connectionId"`
	Browser      string                    `json:"browser,omitempty"`
}

// candidatePayload is the payload of a CANDIDATE message.
type candidatePayload struct {
	Candidate    webrtc.ICECandidateInit `json:"candidate"`
	Type         string                  `json:"type"`
	ConnectionID string                  `json:"connectionId"`
}

// errorPayload is the payload of ERROR, ID-TAKEN and INVALID-KEY messages.
type errorPayload struct {
	Msg string `json:"msg"`
}

const (
	connTypeData      = "data"
	serializationJSON = "json"
	browserName       = "trinn-go"
)

func decodePayload[T any](e envelope) (T, error) {
	var v T
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("invalid %s payload: %w", e.Type, err)
	}
	return v, nil
}

func mustPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("encode payload: %v", err))
	}
	return data
}

// serverError converts an error message from the server into a transport
// error, if the message type denotes one.
func serverError(e envelope, cfg *trinn.Config, id string) (*trinn.TransportError, bool) {
	var msg string
	if p, err := decodePayload[errorPayload](e); err == nil {
		msg = p.Msg
	}
	switch e.Type {
	case msgIDTaken:
		return &trinn.TransportError{
			Name: "Error", Type: trinn.ErrUnavailableID, Message: fmt.Sprintf("ID %q is taken", id),
		}, true
	case msgInvalidKey:
		return &trinn.TransportError{
			Name: "Error", Type: trinn.ErrInvalidKey, Message: fmt.Sprintf("API KEY %q is invalid", cfg.Key),
		}, true
	case msgError:
		return &trinn.TransportError{Name: "Error", Type: trinn.ErrServerError, Message: msg}, true
	}
	return nil, false
}

// signalURL returns the websocket URL of the signaling server for id.
func signalURL(cfg *trinn.Config, id, token string) string {
	scheme := "ws"
	if cfg.Secure {
		scheme = "wss"
	}
	path := cfg.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q := make(url.Values)
	q.Set("key", cfg.Key)
	q.Set("id", id)
	q.Set("token", token)
	u := url.URL{
		Scheme:   scheme,
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     path + "peerjs",
		RawQuery: q.Encode(),
	}
	return u.String()
}

// newToken returns a random session token for a signaling connection.
func newToken() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] }
