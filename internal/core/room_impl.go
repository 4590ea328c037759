package core

import (
	"github.com/dkeye/Rendezvous/internal/domain"
)

// Room is an ordered, capped membership set.
// It is not safe for concurrent use; the owning registry serializes access.
// It never closes adapter-owned resources.
type Room struct {
	id      domain.RoomID
	members []MemberSession
}

func NewRoom(id domain.RoomID) *Room {
	return &Room{id: id, members: make([]MemberSession, 0, MaxRoomMembers)}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) Len() int { return len(r.members) }

func (r *Room) Full() bool { return len(r.members) >= MaxRoomMembers }

func (r *Room) Has(id ConnID) bool {
	return r.indexOf(id) >= 0
}

// Add appends ms unless the room is full or ms is already a member.
func (r *Room) Add(ms MemberSession) bool {
	if r.Full() || r.Has(ms.Signal().ID()) {
		return false
	}
	r.members = append(r.members, ms)
	return true
}

func (r *Room) Remove(id ConnID) bool {
	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	return true
}

// Peer returns the first member in insertion order that is not from.
func (r *Room) Peer(from ConnID) (MemberSession, bool) {
	for _, m := range r.members {
		if m.Signal().ID() != from {
			return m, true
		}
	}
	return nil, false
}

// Members returns a copy in insertion order.
func (r *Room) Members() []MemberSession {
	out := make([]MemberSession, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Info() RoomInfo {
	info := RoomInfo{
		ID:          r.id,
		MemberCount: len(r.members),
		Members:     make([]MemberDTO, 0, len(r.members)),
	}
	for _, m := range r.members {
		info.Members = append(info.Members, MemberDTO{ID: m.Signal().ID(), Username: m.Meta().Username})
	}
	return info
}

func (r *Room) indexOf(id ConnID) int {
	for i, m := range r.members {
		if m.Signal().ID() == id {
			return i
		}
	}
	return -1
}
