// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package trinn

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the type of a message.
type Kind string

// Message kinds understood by this package. Messages of other kinds are
// delivered by transports but discarded by endpoints.
const (
	KindPress   Kind = "press"
	KindRelease Kind = "release"
	KindData    Kind = "data"
)

// Message is the unit of exchange between endpoints. Its JSON encoding is the
// wire format shared with other implementations:
//
//	{"key": "ArrowUp", "type": "press"}
//	{"key": "", "type": "data", "object": {...}}
type Message struct {
	Key    string          `json:"key"`              // for press and release
	Type   Kind            `json:"type"`             // the kind of message
	Object json.RawMessage `json:"object,omitempty"` // for data
}

// Press returns a press message for the specified key.
func Press(key string) *Message { return &Message{Key: key, Type: KindPress} }

// Release returns a release message for the specified key.
func Release(key string) *Message { return &Message{Key: key, Type: KindRelease} }

// Data returns a data message whose object is the JSON encoding of v.
func Data(v any) (*Message, error) {
	obj, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding data object: %w", err)
	}
	return &Message{Type: KindData, Object: obj}, nil
}

// String returns a human-friendly rendering of the message.
func (m *Message) String() string {
	switch m.Type {
	case KindPress, KindRelease:
		return fmt.Sprintf("Message(%s, key=%q)", m.Type, m.Key)
	case KindData:
		return fmt.Sprintf("Message(data, %d bytes)", len(m.Object))
	default:
		return fmt.Sprintf("Message(%q, unknown)", string(m.Type))
	}
}

// A MessageLogger logs a message exchanged with a remote endpoint.
type MessageLogger func(MessageInfo)

// A MessageInfo combines a message with the connection that carried it and a
// flag indicating whether it was sent or received.
type MessageInfo struct {
	*Message        // the message being logged
	Conn     string // the connection ID
	Sent     bool   // whether the message was sent (true) or received (false)
}

func (m MessageInfo) dir() string {
	if m.Sent {
		return "send"
	}
	return "recv"
}

func (m MessageInfo) String() string {
	return fmt.Sprintf("%v %s %v", m.dir(), m.Conn, m.Message)
}
