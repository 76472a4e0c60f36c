package signal

import (
	"github.com/dkeye/Discuss/internal/app/orch"
	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// handleStartDiscussion broadcasts a new topic to everyone, the sender
// included, so there is no separate reply.
func (ctl *SignalWSController) handleStartDiscussion(id domain.ConnID) {
	topic := ctl.Orch.StartDiscussion(orch.TriggerSocket)
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("topic", topic).Msg("start discussion")
}

func (ctl *SignalWSController) handleFetchTopic(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.TopicMessage{Type: core.MsgTopic, Value: ctl.Orch.FetchTopic()})
}
