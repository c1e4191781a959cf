package room

import "github.com/riftsignal/signalserver/internal/transport"
import "github.com/riftsignal/signalserver/internal/types"

// LocalCoordinator is the sole Coordinator implementation in this
// repository: a process-local no-op. spec.md §9 names a "coordinator"
// abstraction for inter-instance state sharing, but the Non-goals (§1)
// explicitly exclude inter-instance coordination, so there is nothing for
// a distributed implementation to do — this type exists so Room's
// dependency on Coordinator is never nil and the seam stays documented
// rather than silently absent.
type LocalCoordinator struct{}

func NewLocalCoordinator() *LocalCoordinator { return &LocalCoordinator{} }

func (*LocalCoordinator) Announce(types.RoomId, uint64, transport.Envelope) {}
