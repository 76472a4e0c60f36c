package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client to server message types.
const (
	typeStartDiscussion = "start-discussion"
	typeFetchTopic      = "fetch-topic"
	typeJoinRoom        = "join-room"
	typeLeaveRoom       = "leave-room"
	typeWhoAmI          = "whoami"
	typePing            = "ping"
)

// Error codes sent back in error messages.
const (
	errBadPayload    = "bad_payload"
	errUnknownType   = "unknown_type"
	errAlreadyInRoom = "already_in_room"
	errEmptyRoomID   = "empty_room_id"
	errNotInRoom     = "not_in_room"
	errRateLimited   = "rate_limited"
	errJoinFailed    = "join_failed"
)

func (ctl *SignalWSController) writePump(ctx context.Context, id domain.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Settings.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(ctl.Settings.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump ping")
				return
			}
		}
	}
}

// readPump owns the connection's lifetime: when it returns the connection is
// unregistered before the socket is closed.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnID, c *WsSignalConn, limiter *messageLimiter) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		ctl.Orch.Disconnect(id)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Settings.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Settings.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Settings.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			if !limiter.Allow() {
				ctl.sendError(c, errRateLimited)
				continue
			}
			ctl.handleSignal(id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(id domain.ConnID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad json")
		ctl.sendError(c, errBadPayload)
		return
	}

	if kind := domain.SignalKind(env.Type); kind.Valid() {
		ctl.handleRelay(id, c, kind, data)
		return
	}

	switch env.Type {
	case typeStartDiscussion:
		ctl.handleStartDiscussion(id)
	case typeFetchTopic:
		ctl.handleFetchTopic(c)
	case typeJoinRoom:
		ctl.handleJoin(id, c, data)
	case typeLeaveRoom:
		ctl.handleLeave(id, c)
	case typeWhoAmI:
		ctl.handleWhoAmI(id, c)
	case typePing:
		ctl.handlePing(c, data)
	default:
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, errUnknownType)
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, code string) {
	ctl.sendJSON(c, core.ErrorMessage{Type: core.MsgError, Error: code})
}
