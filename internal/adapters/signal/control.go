package signal

import "github.com/dkeye/Rendezvous/internal/core"

type handlerFunc func(conn core.SignalConnection, msg core.Inbound)

func (ctl *SignalWSController) routes() map[core.MessageType]handlerFunc {
	return map[core.MessageType]handlerFunc{
		core.TypeJoinRoom:     ctl.handleJoin,
		core.TypeLeaveRoom:    ctl.handleLeave,
		core.TypeOffer:        ctl.handleRelay,
		core.TypeAnswer:       ctl.handleRelay,
		core.TypeICECandidate: ctl.handleRelay,
	}
}
