package orch

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay forwards a signaling payload from one connection to another without
// looking inside it. Room co-membership is not checked: any connection that
// knows a peer id may signal it. Undeliverable messages are dropped and the
// sender is never told; the result is for metrics only.
func (o *Orchestrator) Relay(kind domain.SignalKind, from, to domain.ConnID, payload json.RawMessage) bool {
	logger := log.With().
		Str("module", "orch.relay").
		Str("kind", string(kind)).
		Str("from", string(from)).
		Str("to", string(to)).
		Logger()

	if !kind.Valid() {
		logger.Warn().Msg("unknown signal kind dropped")
		return false
	}
	frame, err := core.EncodeSignal(kind, from, payload)
	if err != nil {
		logger.Warn().Err(err).Msg("payload not encodable, dropped")
		o.metrics().Relayed(kind, false)
		return false
	}

	err = o.Registry.Send(to, frame)
	switch {
	case err == nil:
		logger.Debug().Msg("relayed")
		o.metrics().Relayed(kind, true)
		return true
	case errors.Is(err, domain.ErrUnknownConn):
		logger.Debug().Msg("target not live, dropped")
	default:
		logger.Warn().Err(err).Msg("relay not delivered")
		o.applyPolicy(core.PublishResult{Dropped: []domain.ConnID{to}})
	}
	o.metrics().Relayed(kind, false)
	return false
}
