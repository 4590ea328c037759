package orch

import (
	"errors"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

const roomFullMessage = "Room is full"

// Join adds conn to room id. On a full room the requester gets room-full and
// is closed; the returned error is app.ErrRoomFull.
func (o *Orchestrator) Join(conn core.SignalConnection, id domain.RoomID, username string) error {
	ms := core.NewMemberSession(domain.NewMember(username), conn)
	res, err := o.Registry.Join(id, ms)
	if errors.Is(err, app.ErrRoomFull) {
		log.Info().Str("module", "orch").Str("conn", string(conn.ID())).Str("room", string(id)).Msg("room full, rejecting")
		o.sendMessage(id, conn, core.TypeRoomFull, core.RoomFull{Message: roomFullMessage})
		conn.Close()
		return err
	}
	if err != nil {
		return err
	}

	if !res.Rejoined {
		for _, m := range res.Others {
			if m.Signal().State() != core.StateOpen {
				continue
			}
			o.sendMessage(id, m.Signal(), core.TypeNewUser, core.NewUser{RoomID: id, Username: username})
		}
	}
	o.sendMessage(id, conn, core.TypeRoomJoined, core.RoomJoined{RoomID: id, Username: username})
	return nil
}

// Leave is a no-op when the room is unknown or conn is not in it.
func (o *Orchestrator) Leave(conn core.SignalConnection, id domain.RoomID) {
	remaining, ok := o.Registry.Leave(id, conn.ID())
	if !ok {
		log.Debug().Str("module", "orch").Str("conn", string(conn.ID())).Str("room", string(id)).Msg("leave ignored")
		return
	}
	o.notifyLeft(id, remaining)
}

// OnDisconnect treats a closed or failed connection as leaving every room.
func (o *Orchestrator) OnDisconnect(conn core.SignalConnection) {
	for _, d := range o.Registry.RemoveConn(conn.ID()) {
		o.notifyLeft(d.RoomID, d.Remaining)
	}
}

func (o *Orchestrator) notifyLeft(id domain.RoomID, remaining []core.MemberSession) {
	if len(remaining) != 1 {
		return
	}
	o.sendMessage(id, remaining[0].Signal(), core.TypeUserLeft, core.UserLeft{RoomID: id})
}
