// Package types defines the domain identifiers and enums shared across the
// signaling engine's packages (room, registry, session, router, reconnect).
// Keeping them here, rather than in any one package, is what lets registry,
// room and session refer to each other's keys without an import cycle.
package types

import "github.com/google/uuid"

// PlayerId is an opaque 128-bit identifier, stable for the lifetime of the player.
type PlayerId string

// RoomId is an opaque 128-bit identifier, stable for the lifetime of the room.
type RoomId string

// SpectatorId is an opaque 128-bit identifier, stable for the lifetime of the spectator.
type SpectatorId string

// SessionId is an opaque 128-bit identifier for one WebSocket connection's lifetime.
type SessionId string

// RoomCode is a short, human-shareable, upper-case alphanumeric code unique
// within a (gameName, code) pair.
type RoomCode string

// AppId identifies an authenticated application/tenant.
type AppId string

func NewPlayerId() PlayerId       { return PlayerId(uuid.NewString()) }
func NewRoomId() RoomId           { return RoomId(uuid.NewString()) }
func NewSpectatorId() SpectatorId { return SpectatorId(uuid.NewString()) }
func NewSessionId() SessionId     { return SessionId(uuid.NewString()) }

// LobbyState is the room's position in the ready-up state machine.
type LobbyState string

const (
	LobbyStateWaiting   LobbyState = "Waiting"
	LobbyStateLobby     LobbyState = "Lobby"
	LobbyStateFinalized LobbyState = "Finalized"
)

// RelayType tags how peers are expected to connect; opaque to the core.
type RelayType string

const (
	RelayTypeWebRTC RelayType = "webrtc"
	RelayTypeMesh   RelayType = "mesh"
)

// SessionState is the connection lifecycle state (spec.md §4.1).
type SessionState string

const (
	SessionStatePendingAuth SessionState = "PendingAuth"
	SessionStateActive      SessionState = "Active"
	SessionStateClosing     SessionState = "Closing"
	SessionStateClosed      SessionState = "Closed"
)

// CloseReason records why a session moved to Closing/Closed, for logging and metrics.
type CloseReason string

const (
	CloseReasonClientClosed         CloseReason = "ClientClosed"
	CloseReasonSlowConsumer         CloseReason = "SlowConsumer"
	CloseReasonAuthenticationTimeout CloseReason = "AuthenticationTimeout"
	CloseReasonIdleTimeout          CloseReason = "IdleTimeout"
	CloseReasonProtocolViolation    CloseReason = "ProtocolViolation"
	CloseReasonConnectionLimit      CloseReason = "ConnectionLimit"
	CloseReasonServerShutdown       CloseReason = "ServerShutdown"
	CloseReasonRoomClosed           CloseReason = "RoomClosed"
)
