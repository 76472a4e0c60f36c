package core

import (
	"slices"

	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is an in-memory membership set.
// It never closes adapter-owned resources.
type roomImpl struct {
	room    *domain.Room
	members map[domain.ConnID]SignalConnection
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:    room,
		members: make(map[domain.ConnID]SignalConnection),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int { return len(r.members) }

func (r *roomImpl) Has(id domain.ConnID) bool {
	_, ok := r.members[id]
	return ok
}

func (r *roomImpl) AddMember(id domain.ConnID, conn SignalConnection) {
	r.members[id] = conn
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("conn", string(id)).Msg("member added")
}

func (r *roomImpl) RemoveMember(id domain.ConnID) {
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("conn", string(id)).Msg("member removed")
}

// Broadcast sends data to every member except from.
func (r *roomImpl) Broadcast(from domain.ConnID, data Frame) PublishResult {
	res := PublishResult{}
	for id, conn := range r.members {
		if id == from {
			continue
		}
		res.Record(id, conn.TrySend(data))
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) Members() []domain.ConnID {
	out := make([]domain.ConnID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
