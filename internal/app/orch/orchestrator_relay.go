package orch

import (
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/rs/zerolog/log"
)

// Relay forwards sig.Raw untouched to the other member of sig.RoomID.
// Unknown rooms, lone senders and non-members are dropped silently.
func (o *Orchestrator) Relay(from core.SignalConnection, sig core.Signal) bool {
	peer, ok := o.Registry.Peer(sig.RoomID, from.ID())
	if !ok {
		log.Debug().
			Str("module", "orch").
			Str("conn", string(from.ID())).
			Str("room", string(sig.RoomID)).
			Str("type", string(sig.Type)).
			Msg("relay: no peer")
		return false
	}
	return o.send(sig.RoomID, peer.Signal(), sig.Raw)
}
