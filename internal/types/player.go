package types

import "time"

// Player is a member of a room. The Room owns the Player record; the
// SessionRef is a weak handle resolved through the session manager rather
// than a direct pointer, so a disconnected (parked) player never holds a
// dangling reference to a dead connection.
type Player struct {
	Id           PlayerId
	Name         string
	JoinedAt     time.Time
	IsReady      bool
	IsAuthority  bool
	SessionRef   SessionId // empty when parked pending reconnection
}

// Parked reports whether the player currently has no live session attached.
func (p *Player) Parked() bool {
	return p.SessionRef == ""
}

// Spectator observes a room without counting against maxPlayers and
// without ready/authority eligibility.
type Spectator struct {
	Id         SpectatorId
	Name       string
	JoinedAt   time.Time
	SessionRef SessionId
}

// AppQuotas bounds what an authenticated application may do. Echoed back to
// the client in the Authenticated reply (spec.md §6's rateLimits field) so
// it knows the limits it's operating under without a separate round trip.
type AppQuotas struct {
	MaxRooms           int `json:"maxRooms"`
	MaxPlayersPerRoom  int `json:"maxPlayersPerRoom"`
	RateLimitPerMinute int `json:"rateLimitPerMinute"`
}

// AppContext is attached to a Session once the auth handshake succeeds.
type AppContext struct {
	AppId  AppId
	AppName string
	Quotas AppQuotas
}
