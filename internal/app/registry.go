package app

import (
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrRoomFull = errors.New("room is full")

// Registry owns every room and the reverse index from connection to rooms.
// All access goes through one mutex; callers get snapshots and must never
// send to a connection while holding it.
type Registry struct {
	mu     sync.Mutex
	rooms  map[domain.RoomID]*core.Room
	byConn map[core.ConnID]map[domain.RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[domain.RoomID]*core.Room),
		byConn: make(map[core.ConnID]map[domain.RoomID]struct{}),
	}
}

type JoinResult struct {
	// Others are the members that were already present, in join order.
	Others   []core.MemberSession
	Rejoined bool
}

// Departure describes one room a connection was removed from.
type Departure struct {
	RoomID    domain.RoomID
	Remaining []core.MemberSession
}

// Join adds ms to room id, creating the room on first use.
// A full room yields ErrRoomFull and is left untouched.
func (r *Registry) Join(id domain.RoomID, ms core.MemberSession) (JoinResult, error) {
	cid := ms.Signal().ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.getOrCreate(id)
	if room.Has(cid) {
		return JoinResult{Others: othersThan(room, cid), Rejoined: true}, nil
	}
	if room.Full() {
		return JoinResult{}, ErrRoomFull
	}
	others := room.Members()
	room.Add(ms)
	r.index(cid, id)
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("room", string(id)).Int("members", room.Len()).Msg("joined room")
	return JoinResult{Others: others}, nil
}

// Leave removes cid from room id. ok is false when the room does not exist
// or cid is not a member. remaining is empty when the room was deleted.
func (r *Registry) Leave(id domain.RoomID, cid core.ConnID) (remaining []core.MemberSession, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leave(id, cid)
}

// RemoveConn is an implicit Leave from every room cid belongs to.
func (r *Registry) RemoveConn(cid core.ConnID) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]domain.RoomID, 0, len(r.byConn[cid]))
	for id := range r.byConn[cid] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Departure, 0, len(ids))
	for _, id := range ids {
		if remaining, ok := r.leave(id, cid); ok {
			out = append(out, Departure{RoomID: id, Remaining: remaining})
		}
	}
	delete(r.byConn, cid)
	return out
}

// Peer returns the member of room id that from should relay to.
// from must itself be a member.
func (r *Registry) Peer(id domain.RoomID, from core.ConnID) (core.MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok || !room.Has(from) {
		return nil, false
	}
	return room.Peer(from)
}

func (r *Registry) RoomsOf(cid core.ConnID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RoomID, 0, len(r.byConn[cid]))
	for id := range r.byConn[cid] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) leave(id domain.RoomID, cid core.ConnID) ([]core.MemberSession, bool) {
	room, ok := r.rooms[id]
	if !ok || !room.Remove(cid) {
		return nil, false
	}
	r.unindex(cid, id)
	log.Info().Str("module", "app.registry").Str("conn", string(cid)).Str("room", string(id)).Int("members", room.Len()).Msg("left room")
	if room.Len() == 0 {
		r.delete(id)
		return nil, true
	}
	return room.Members(), true
}

func (r *Registry) index(cid core.ConnID, id domain.RoomID) {
	set, ok := r.byConn[cid]
	if !ok {
		set = make(map[domain.RoomID]struct{})
		r.byConn[cid] = set
	}
	set[id] = struct{}{}
}

func (r *Registry) unindex(cid core.ConnID, id domain.RoomID) {
	set, ok := r.byConn[cid]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.byConn, cid)
	}
}

func othersThan(room *core.Room, cid core.ConnID) []core.MemberSession {
	all := room.Members()
	out := all[:0]
	for _, m := range all {
		if m.Signal().ID() != cid {
			out = append(out, m)
		}
	}
	return out
}
