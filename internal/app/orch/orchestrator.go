package orch

import (
	"errors"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator implements room lifecycle and relay on top of the registry.
// It is safe for concurrent use by every connection's read loop.
type Orchestrator struct {
	Registry *app.Registry
	Policy   app.Policy
}

func New(reg *app.Registry, policy app.Policy) *Orchestrator {
	return &Orchestrator{Registry: reg, Policy: policy}
}

func (o *Orchestrator) sendMessage(room domain.RoomID, to core.SignalConnection, t core.MessageType, payload any) bool {
	f, err := core.Encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", string(t)).Msg("encode")
		return false
	}
	return o.send(room, to, f)
}

// send never blocks. A full queue is handed to the backpressure policy.
func (o *Orchestrator) send(room domain.RoomID, to core.SignalConnection, f core.Frame) bool {
	err := to.TrySend(f)
	if err == nil {
		return true
	}
	if errors.Is(err, core.ErrBackpressure) && o.Policy != nil {
		switch o.Policy.OnBackPressure(room, to) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("room", string(room)).Str("conn", string(to.ID())).Msg("slow member kicked")
			to.Close()
			return false
		case app.DropFrame:
		}
	}
	log.Warn().Err(err).Str("module", "orch").Str("room", string(room)).Str("conn", string(to.ID())).Msg("frame dropped")
	return false
}
