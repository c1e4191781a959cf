package room

import (
	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

// RequestAuthority grants or releases authority per spec.md §4.5. Returns
// the resulting authority holder (empty if none) and whether the request
// was granted/released successfully.
func (r *Room) RequestAuthority(playerID types.PlayerId, become bool) (holder types.PlayerId, granted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.memberByID[playerID]
	if !ok {
		return "", false, apperr.New(apperr.CodeNotInRoom, "player is not a member of this room")
	}

	if !become {
		if r.authorityPlayer == playerID {
			r.members[idx].IsAuthority = false
			r.authorityPlayer = ""
			if r.SupportsAuthority {
				for i := range r.members {
					if r.members[i].Id != playerID {
						r.members[i].IsAuthority = true
						r.authorityPlayer = r.members[i].Id
						break
					}
				}
			}
			r.touch()
		}
		return r.authorityPlayer, true, nil
	}

	if !r.SupportsAuthority {
		return r.authorityPlayer, false, nil
	}
	if r.authorityPlayer != "" && r.authorityPlayer != playerID {
		return r.authorityPlayer, false, nil
	}

	r.members[idx].IsAuthority = true
	r.authorityPlayer = playerID
	r.touch()
	return r.authorityPlayer, true, nil
}

// autoPromoteAuthorityLocked hands authority to the longest-joined remaining
// member when the prior authority departs (spec.md §4.5). A release is
// handled in RequestAuthority, which skips the releasing member.
// Callers hold r.mu already.
func (r *Room) autoPromoteAuthorityLocked() {
	if !r.SupportsAuthority || r.authorityPlayer != "" || len(r.members) == 0 {
		return
	}
	r.members[0].IsAuthority = true
	r.authorityPlayer = r.members[0].Id
}

// CurrentAuthority returns the current authority holder, or "" if none.
func (r *Room) CurrentAuthority() types.PlayerId {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authorityPlayer
}

func authorityChangedEnvelope(authorityPlayer types.PlayerId, youAreAuthorityFor types.PlayerId) (transport.Envelope, error) {
	var ap *types.PlayerId
	if authorityPlayer != "" {
		ap = &authorityPlayer
	}
	return transport.NewEnvelope(transport.TypeAuthorityChanged, struct {
		AuthorityPlayer  *types.PlayerId `json:"authorityPlayer,omitempty"`
		YouAreAuthority  bool            `json:"youAreAuthority"`
	}{AuthorityPlayer: ap, YouAreAuthority: authorityPlayer != "" && authorityPlayer == youAreAuthorityFor})
}
