package room

import (
	"sync"

	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

// fakeRecipient records every envelope enqueued to it, standing in for a
// live session without the goroutines a real *session.Session needs.
type fakeRecipient struct {
	id types.SessionId

	mu       sync.Mutex
	received []transport.Envelope
	full     bool
}

func newFakeRecipient(id types.SessionId) *fakeRecipient {
	return &fakeRecipient{id: id}
}

func (f *fakeRecipient) SessionId() types.SessionId { return f.id }

func (f *fakeRecipient) TryEnqueue(env transport.Envelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.received = append(f.received, env)
	return true
}

func (f *fakeRecipient) envelopes() []transport.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Envelope, len(f.received))
	copy(out, f.received)
	return out
}

func newTestRoom(maxPlayers int, supportsAuthority bool) *Room {
	return New(types.NewRoomId(), types.RoomCode("ABC123"), Config{
		GameName:          "tag",
		MaxPlayers:        maxPlayers,
		SupportsAuthority: supportsAuthority,
		EventBufferSize:   32,
	})
}

// joinMember adds a ready-to-deliver member with a bound fake session,
// returning both so tests can assert on deliveries.
func joinMember(r *Room, name string) (*types.Player, *fakeRecipient) {
	sessID := types.NewSessionId()
	player := &types.Player{Id: types.NewPlayerId(), Name: name, SessionRef: sessID}
	if _, err := r.AddMember(player); err != nil {
		panic(err)
	}
	rec := newFakeRecipient(sessID)
	r.BindSession(sessID, rec)
	return player, rec
}
