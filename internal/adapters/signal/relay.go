package signal

import "github.com/dkeye/Rendezvous/internal/core"

func (ctl *SignalWSController) handleRelay(conn core.SignalConnection, msg core.Inbound) {
	sig, ok := msg.(core.Signal)
	if !ok {
		return
	}
	ctl.Orch.Relay(conn, sig)
}
