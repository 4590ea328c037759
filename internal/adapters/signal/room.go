package signal

import (
	"errors"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(conn core.SignalConnection, msg core.Inbound) {
	p, ok := msg.(core.JoinRoom)
	if !ok {
		return
	}
	if !ctl.limiter.Allow(conn.ID()) {
		log.Warn().Str("module", "signal").Str("conn", string(conn.ID())).Str("room", string(p.RoomID)).Msg("join rate limited")
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("room", string(p.RoomID)).Str("username", p.Username).Msg("join")
	if err := ctl.Orch.Join(conn, p.RoomID, p.Username); err != nil && !errors.Is(err, app.ErrRoomFull) {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("join failed")
	}
}

// handleLeave only drops room membership; the socket stays open.
func (ctl *SignalWSController) handleLeave(conn core.SignalConnection, msg core.Inbound) {
	p, ok := msg.(core.LeaveRoom)
	if !ok {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("room", string(p.RoomID)).Msg("leave")
	ctl.Orch.Leave(conn, p.RoomID)
}
