package orch

import (
	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join puts id into roomName and tells the existing members. It returns the
// ids of those members so the joiner can address them.
func (o *Orchestrator) Join(id domain.ConnID, roomName domain.RoomID) ([]domain.ConnID, error) {
	joined := core.MustEncode(core.PeerMessage{Type: core.MsgPeerJoined, ConnectionID: id})
	peers, res, err := o.Registry.Join(id, roomName, joined)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(id)).Str("room", string(roomName)).Msg("join rejected")
		return nil, err
	}
	o.metrics().RoomsChanged(o.Registry.RoomCount())
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(roomName)).Int("peers", len(peers)).Msg("added to room")
	o.applyPolicy(res)
	return peers, nil
}

// Leave removes id from its room, if any, keeping the connection open.
func (o *Orchestrator) Leave(id domain.ConnID) (domain.RoomID, bool) {
	left := core.MustEncode(core.PeerMessage{Type: core.MsgPeerLeft, ConnectionID: id})
	roomName, res := o.Registry.Leave(id, left)
	if roomName == "" {
		return "", false
	}
	o.metrics().RoomsChanged(o.Registry.RoomCount())
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(roomName)).Msg("left room")
	o.applyPolicy(res)
	return roomName, true
}

func (o *Orchestrator) MembersOf(roomName domain.RoomID) []domain.ConnID {
	return o.Registry.MembersOf(roomName)
}
