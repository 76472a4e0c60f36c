package signal

import (
	"encoding/json"

	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleRelay forwards offer, answer and ice-candidate messages. The payload
// is never decoded.
func (ctl *SignalWSController) handleRelay(
	id domain.ConnID,
	conn *WsSignalConn,
	kind domain.SignalKind,
	data []byte,
) {
	type relayPayload struct {
		Type    string          `json:"type"`
		To      string          `json:"to"`
		Payload json.RawMessage `json:"payload"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Msg("bad relay payload")
		ctl.sendError(conn, errBadPayload)
		return
	}
	ctl.Orch.Relay(kind, id, domain.ConnID(p.To), p.Payload)
}
