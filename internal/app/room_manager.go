package app

import (
	"slices"
	"strings"

	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// Rooms exist only while they have members. The helpers below expect r.mu
// to be held for writing.

func (r *Registry) getOrCreateLocked(name domain.RoomID) core.RoomService {
	if room, ok := r.rooms[name]; ok {
		return room
	}
	room := core.NewRoomService(&domain.Room{ID: name})
	r.rooms[name] = room
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	return room
}

func (r *Registry) dropIfEmptyLocked(name domain.RoomID) {
	room, ok := r.rooms[name]
	if !ok || room.MemberCount() > 0 {
		return
	}
	delete(r.rooms, name)
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room dropped")
}

func (r *Registry) Rooms() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for name, room := range r.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: room.MemberCount()})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int {
		return strings.Compare(string(a.Name), string(b.Name))
	})
	return out
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
