package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Discuss/internal/domain"
)

// Server to client message types.
const (
	MsgWelcome    = "welcome"
	MsgTopic      = "topic"
	MsgPeerJoined = "peer-joined"
	MsgPeerLeft   = "peer-left"
	MsgRoomJoined = "room-joined"
	MsgRoomLeft   = "room-left"
	MsgWhoAmI     = "whoami"
	MsgPong       = "pong"
	MsgError      = "error"
)

type WelcomeMessage struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
	Topic        string        `json:"topic,omitempty"`
}

type TopicMessage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type PeerMessage struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
}

// signalHeader is the envelope of a relayed offer, answer or ICE candidate.
// The payload is appended by EncodeSignal.
type signalHeader struct {
	Type domain.SignalKind `json:"type"`
	From domain.ConnID     `json:"from"`
}

type RoomJoinedMessage struct {
	Type    string          `json:"type"`
	RoomID  domain.RoomID   `json:"roomId"`
	Members []domain.ConnID `json:"members"`
}

// PongMessage answers a client ping. TS echoes the client's timestamp and
// ServerTime is in Unix milliseconds.
type PongMessage struct {
	Type       string `json:"type"`
	TS         int64  `json:"ts,omitempty"`
	ServerTime int64  `json:"serverTime"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Encode marshals v without HTML escaping so relayed payloads keep their
// characters.
func Encode(v any) (Frame, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return Frame(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// EncodeSignal builds {"type","from","payload"} with payload copied byte for
// byte. encoding/json would compact a RawMessage, so the value is spliced in
// after the header. A missing payload is sent as null.
func EncodeSignal(kind domain.SignalKind, from domain.ConnID, payload json.RawMessage) (Frame, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if !json.Valid(payload) {
		return nil, errors.New("encode signal: payload is not valid JSON")
	}
	head, err := Encode(signalHeader{Type: kind, From: from})
	if err != nil {
		return nil, err
	}
	frame := make(Frame, 0, len(head)+len(payload)+len(`,"payload":}`))
	frame = append(frame, head[:len(head)-1]...)
	frame = append(frame, `,"payload":`...)
	frame = append(frame, payload...)
	return append(frame, '}'), nil
}

// MustEncode is for messages built from fixed types that cannot fail.
func MustEncode(v any) Frame {
	f, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return f
}
