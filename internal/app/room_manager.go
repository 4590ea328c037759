package app

import (
	"sort"

	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

// getOrCreate and delete must be called with r.mu held. A room created here
// is either filled by the same critical section or removed before unlock.

func (r *Registry) getOrCreate(id domain.RoomID) *core.Room {
	if room, ok := r.rooms[id]; ok {
		return room
	}
	room := core.NewRoom(id)
	r.rooms[id] = room
	log.Debug().Str("module", "app.registry").Str("room", string(id)).Msg("room created")
	return room
}

func (r *Registry) delete(id domain.RoomID) {
	if _, ok := r.rooms[id]; !ok {
		return
	}
	delete(r.rooms, id)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room deleted")
}

func (r *Registry) Has(id domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) Get(id domain.RoomID) (core.RoomInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return core.RoomInfo{}, false
	}
	return room.Info(), true
}

// List returns every room sorted by id.
func (r *Registry) List() []core.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NewRoomID generates an id that no live room is using.
func (r *Registry) NewRoomID() (domain.RoomID, error) {
	for {
		id, err := domain.NewRoomID()
		if err != nil {
			return "", err
		}
		if !r.Has(id) {
			return id, nil
		}
	}
}
