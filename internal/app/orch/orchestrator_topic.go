package orch

import (
	"github.com/dkeye/Discuss/internal/core"
	"github.com/rs/zerolog/log"
)

const (
	TriggerSocket = "socket"
	TriggerHTTP   = "http"
	TriggerFetch  = "fetch"
)

// StartDiscussion picks a new topic, pushes it to every live connection and
// returns it to the caller.
func (o *Orchestrator) StartDiscussion(trigger string) string {
	o.topicMu.Lock()
	topic := o.Topics.Select()
	res := o.Registry.Broadcast(core.MustEncode(core.TopicMessage{Type: core.MsgTopic, Value: topic}))
	o.topicMu.Unlock()

	o.metrics().TopicSelected(trigger)
	log.Info().Str("module", "orch.topic").Str("trigger", trigger).Str("topic", topic).Int("sent_to", res.SendTo).Msg("discussion started")
	o.applyPolicy(res)
	return topic
}

// FetchTopic picks a new topic for the caller only.
func (o *Orchestrator) FetchTopic() string {
	o.topicMu.Lock()
	topic := o.Topics.Select()
	o.topicMu.Unlock()

	o.metrics().TopicSelected(TriggerFetch)
	log.Info().Str("module", "orch.topic").Str("topic", topic).Msg("topic fetched")
	return topic
}

func (o *Orchestrator) CurrentTopic() (string, bool) {
	return o.Topics.Last()
}
