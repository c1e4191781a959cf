package room

import "github.com/riftsignal/signalserver/internal/types"

// Snapshot is the room summary sent in RoomCreated/RoomJoined and embedded
// in a Reconnected payload (spec.md §6).
type Snapshot struct {
	RoomId             types.RoomId       `json:"roomId"`
	RoomCode           types.RoomCode     `json:"roomCode"`
	PlayerId           types.PlayerId     `json:"playerId"`
	GameName           string             `json:"gameName"`
	MaxPlayers         int                `json:"maxPlayers"`
	SupportsAuthority  bool               `json:"supportsAuthority"`
	CurrentPlayers     []types.Player     `json:"currentPlayers"`
	IsAuthority        bool               `json:"isAuthority"`
	LobbyState         types.LobbyState   `json:"lobbyState"`
	ReadyPlayers       []types.PlayerId   `json:"readyPlayers"`
	RelayType          types.RelayType    `json:"relayType"`
	CurrentSpectators  []types.Spectator  `json:"currentSpectators"`
}

// SnapshotFor builds the room summary as seen by viewerID (determines
// IsAuthority and PlayerId).
func (r *Room) SnapshotFor(viewerID types.PlayerId) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ready []types.PlayerId
	for _, m := range r.members {
		if m.IsReady {
			ready = append(ready, m.Id)
		}
	}

	specs := make([]types.Spectator, 0, len(r.spectators))
	for _, s := range r.spectators {
		specs = append(specs, *s)
	}

	return Snapshot{
		RoomId:            r.Id,
		RoomCode:          r.Code,
		PlayerId:          viewerID,
		GameName:          r.GameName,
		MaxPlayers:        r.MaxPlayers,
		SupportsAuthority: r.SupportsAuthority,
		CurrentPlayers:    derefMembers(r.members),
		IsAuthority:       viewerID != "" && viewerID == r.authorityPlayer,
		LobbyState:        r.LobbyState,
		ReadyPlayers:      ready,
		RelayType:         r.RelayType,
		CurrentSpectators: specs,
	}
}

func derefMembers(ptrs []*types.Player) []types.Player {
	out := make([]types.Player, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}
