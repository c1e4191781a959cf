// Package transport is the external collaborator the core signaling engine
// consumes: wire envelope framing, JSON/MessagePack encoding, and the
// gorilla/websocket connection adapter. None of this package decides game
// semantics — it only gets bytes on and off the wire in the shape the core
// expects (spec.md §6).
package transport

import "encoding/json"

// MessageType is the string discriminator carried on every envelope.
type MessageType string

// Client -> server message types.
const (
	TypeAuthenticate           MessageType = "Authenticate"
	TypeJoinRoom               MessageType = "JoinRoom"
	TypeLeaveRoom              MessageType = "LeaveRoom"
	TypeGameData               MessageType = "GameData"
	TypePlayerReady            MessageType = "PlayerReady"
	TypeAuthorityRequest       MessageType = "AuthorityRequest"
	TypeProvideConnectionInfo  MessageType = "ProvideConnectionInfo"
	TypePing                   MessageType = "Ping"
	TypeReconnect              MessageType = "Reconnect"
	TypeJoinAsSpectator        MessageType = "JoinAsSpectator"
	TypeLeaveSpectator         MessageType = "LeaveSpectator"
)

// Server -> client message types.
const (
	TypeAuthenticated           MessageType = "Authenticated"
	TypeAuthenticationError     MessageType = "AuthenticationError"
	TypeRoomCreated             MessageType = "RoomCreated"
	TypeRoomJoined              MessageType = "RoomJoined"
	TypeRoomJoinFailed          MessageType = "RoomJoinFailed"
	TypeRoomLeft                MessageType = "RoomLeft"
	TypePlayerJoined            MessageType = "PlayerJoined"
	TypePlayerLeft              MessageType = "PlayerLeft"
	TypePlayerDisconnected      MessageType = "PlayerDisconnected"
	TypePlayerReconnected       MessageType = "PlayerReconnected"
	TypeLobbyStateChanged       MessageType = "LobbyStateChanged"
	TypeGameStarting            MessageType = "GameStarting"
	TypeAuthorityChanged        MessageType = "AuthorityChanged"
	TypeAuthorityResponse       MessageType = "AuthorityResponse"
	TypePong                    MessageType = "Pong"
	TypeReconnected             MessageType = "Reconnected"
	TypeReconnectionFailed      MessageType = "ReconnectionFailed"
	TypeSpectatorJoined         MessageType = "SpectatorJoined"
	TypeSpectatorLeft           MessageType = "SpectatorLeft"
	TypeNewSpectatorJoined      MessageType = "NewSpectatorJoined"
	TypeSpectatorDisconnected   MessageType = "SpectatorDisconnected"
	TypeSpectatorJoinFailed     MessageType = "SpectatorJoinFailed"
	TypeRoomClosed              MessageType = "RoomClosed"
	TypeError                   MessageType = "Error"
)

// Envelope is the wire-level unit: a discriminated union keyed by Type.
// Data is kept as raw JSON so the router can defer decoding into a
// concrete payload struct until the per-type schema is known (mirrors the
// teacher's `assertPayload[T]` pattern in internal/v1/session/handlers.go).
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	// Seq is populated by the room broadcaster on outbound envelopes only;
	// it is the room's monotonically increasing sequence number (spec.md §4.6).
	Seq uint64 `json:"seq,omitempty"`
}

// DecodePayload re-marshals-then-unmarshals like the teacher's assertPayload
// helper, giving callers a typed struct instead of a map[string]any.
func DecodePayload[T any](e Envelope) (T, error) {
	var out T
	if len(e.Data) == 0 {
		return out, nil
	}
	err := json.Unmarshal(e.Data, &out)
	return out, err
}

// NewEnvelope builds an outbound envelope, marshalling payload into Data.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: t}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Data: data}, nil
}
