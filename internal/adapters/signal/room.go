package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(
	id domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad join payload")
		ctl.sendError(conn, errBadPayload)
		return
	}

	roomID := domain.RoomID(p.RoomID)
	peers, err := ctl.Orch.Join(id, roomID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyInRoom):
		ctl.sendError(conn, errAlreadyInRoom)
		return
	case errors.Is(err, domain.ErrEmptyRoomID):
		ctl.sendError(conn, errEmptyRoomID)
		return
	default:
		ctl.sendError(conn, errJoinFailed)
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", string(roomID)).Msg("join")
	ctl.sendJSON(conn, core.RoomJoinedMessage{
		Type:    core.MsgRoomJoined,
		RoomID:  roomID,
		Members: peers,
	})
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	id domain.ConnID,
	conn *WsSignalConn,
) {
	roomID, ok := ctl.Orch.Leave(id)
	if !ok {
		ctl.sendError(conn, errNotInRoom)
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", string(roomID)).Msg("leave")
	ctl.sendJSON(conn, struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}{
		Type:   core.MsgRoomLeft,
		RoomID: roomID,
	})
}

func (ctl *SignalWSController) handleWhoAmI(
	id domain.ConnID,
	conn *WsSignalConn,
) {
	me, ok := ctl.Orch.Registry.Connection(id)
	if !ok {
		return
	}
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		domain.Connection
	}{
		Type:       core.MsgWhoAmI,
		Connection: me,
	})
}
