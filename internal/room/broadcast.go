package room

import (
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
)

// SlowConsumer names a session whose outbound queue was full during a
// broadcast; the caller (session manager) is responsible for closing it
// with CloseReasonSlowConsumer (spec.md §4.6).
type SlowConsumer struct {
	SessionId types.SessionId
	PlayerId  types.PlayerId // empty if the slow consumer was a spectator
}

// Broadcast appends env to the room's event log and enqueues it to every
// recipient selected by audience, all under the room lock, guaranteeing
// every observer sees the same ordered prefix of events (spec.md §4.6).
// It returns the sessions that were too slow to keep up.
func (r *Room) Broadcast(env transport.Envelope, audience Audience) []SlowConsumer {
	r.mu.Lock()

	seq := r.EventLog.Append(env)
	env.Seq = seq
	r.Coordinator.Announce(r.Id, seq, env)

	slow := r.deliverLocked(env, audience)

	fanout := len(r.sessions) - len(slow)
	r.mu.Unlock()

	metrics.BroadcastFanout.Observe(float64(fanout))
	if len(slow) > 0 {
		metrics.SlowConsumerDisconnects.Add(float64(len(slow)))
		logging.Warn(logCtx(r.Id), "slow consumers detected during broadcast",
			zap.Int("count", len(slow)), zap.String("type", string(env.Type)))
	}
	return slow
}

// deliverLocked enqueues env to every live recipient selected by audience.
// Callers hold r.mu already and are responsible for event-log bookkeeping.
func (r *Room) deliverLocked(env transport.Envelope, audience Audience) []SlowConsumer {
	var slow []SlowConsumer
	for _, m := range r.members {
		if !r.audienceIncludesPlayerLocked(audience, m.Id) {
			continue
		}
		if m.SessionRef == "" {
			continue // parked, nothing live to enqueue to
		}
		rec, ok := r.sessions[m.SessionRef]
		if !ok {
			continue
		}
		if !rec.TryEnqueue(env) {
			slow = append(slow, SlowConsumer{SessionId: m.SessionRef, PlayerId: m.Id})
		}
	}

	if audience.kind == AudienceSpectators || audience.kind == AudienceEveryone {
		for _, s := range r.spectators {
			if s.SessionRef == "" {
				continue
			}
			rec, ok := r.sessions[s.SessionRef]
			if !ok {
				continue
			}
			if !rec.TryEnqueue(env) {
				slow = append(slow, SlowConsumer{SessionId: s.SessionRef})
			}
		}
	}
	return slow
}

func (r *Room) audienceIncludesPlayerLocked(a Audience, playerID types.PlayerId) bool {
	switch a.kind {
	case AudienceAllMembers, AudienceEveryone:
		return true
	case AudienceAllExcept:
		return playerID != a.exceptID
	case AudienceSpectators:
		return false
	default:
		return false
	}
}

// SendToPlayer delivers env directly to one member's live session without
// touching the event log — used for point-to-point relay payloads like
// ProvideConnectionInfo, which are opaque to the server and not part of
// reconnection replay (spec.md §4.2). Returns false if the player has no
// live session to deliver to.
func (r *Room) SendToPlayer(playerID types.PlayerId, env transport.Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.memberByID[playerID]
	if !ok || r.members[idx].SessionRef == "" {
		return false
	}
	rec, ok := r.sessions[r.members[idx].SessionRef]
	if !ok {
		return false
	}
	return rec.TryEnqueue(env)
}

// BroadcastAuthorityChanged sends AuthorityChanged to every member, with
// `youAreAuthority` computed per recipient (spec.md §6) — the one envelope
// shape in this protocol that varies by observer. A single, neutral copy
// (youAreAuthority=false) is what a reconnecting player receives on replay;
// the live per-recipient copies carry the accurate flag.
func (r *Room) BroadcastAuthorityChanged(authorityPlayer types.PlayerId) []SlowConsumer {
	neutral, err := authorityChangedEnvelope(authorityPlayer, "")
	if err != nil {
		return nil
	}

	r.mu.Lock()
	seq := r.EventLog.Append(neutral)
	r.Coordinator.Announce(r.Id, seq, neutral)

	var slow []SlowConsumer
	for _, m := range r.members {
		if m.SessionRef == "" {
			continue
		}
		rec, ok := r.sessions[m.SessionRef]
		if !ok {
			continue
		}
		env, err := authorityChangedEnvelope(authorityPlayer, m.Id)
		if err != nil {
			continue
		}
		env.Seq = seq
		if !rec.TryEnqueue(env) {
			slow = append(slow, SlowConsumer{SessionId: m.SessionRef, PlayerId: m.Id})
		}
	}
	r.mu.Unlock()

	metrics.BroadcastFanout.Observe(float64(len(r.members) - len(slow)))
	return slow
}
