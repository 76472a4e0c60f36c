package orch

import (
	"sync"

	"github.com/dkeye/Discuss/internal/app"
	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

// Metrics receives coordination events. Nil means no metrics.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomsChanged(n int)
	Relayed(kind domain.SignalKind, delivered bool)
	FramesDropped(n int)
	TopicSelected(trigger string)
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened()               {}
func (nopMetrics) ConnectionClosed()               {}
func (nopMetrics) RoomsChanged(int)                {}
func (nopMetrics) Relayed(domain.SignalKind, bool) {}
func (nopMetrics) FramesDropped(int)               {}
func (nopMetrics) TopicSelected(string)            {}

// Orchestrator is the coordination service: connections, rooms, signaling
// relay and topic broadcast. Adapters call it; it never touches sockets
// beyond core.SignalConnection.
type Orchestrator struct {
	Registry *app.Registry
	Topics   *app.TopicSelector
	Policy   app.Policy
	Metrics  Metrics

	// topicMu makes selection and its broadcast one step.
	topicMu sync.Mutex
}

func (o *Orchestrator) metrics() Metrics {
	if o.Metrics == nil {
		return nopMetrics{}
	}
	return o.Metrics
}

// Connect registers a new transport connection and greets it. welcome is
// queued during registration so it is always the first frame, and topicMu
// keeps its topic in step with a concurrent StartDiscussion.
func (o *Orchestrator) Connect(id domain.ConnID, conn core.SignalConnection) error {
	o.topicMu.Lock()
	defer o.topicMu.Unlock()
	welcome := core.WelcomeMessage{Type: core.MsgWelcome, ConnectionID: id}
	if topic, ok := o.Topics.Last(); ok {
		welcome.Topic = topic
	}
	if err := o.Registry.Register(id, conn, core.MustEncode(welcome)); err != nil {
		return err
	}
	o.metrics().ConnectionOpened()
	log.Info().Str("module", "orch").Str("conn", string(id)).Msg("connected")
	return nil
}

// Disconnect removes the connection and its room membership before any
// later operation on id can observe it.
func (o *Orchestrator) Disconnect(id domain.ConnID) {
	left := core.MustEncode(core.PeerMessage{Type: core.MsgPeerLeft, ConnectionID: id})
	roomID, res, ok := o.Registry.Unregister(id, left)
	if !ok {
		return
	}
	o.metrics().ConnectionClosed()
	o.metrics().RoomsChanged(o.Registry.RoomCount())
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(roomID)).Int("notified", res.SendTo).Msg("disconnected")
	o.applyPolicy(res)
}

func (o *Orchestrator) applyPolicy(res core.PublishResult) {
	if len(res.Dropped) == 0 {
		return
	}
	o.metrics().FramesDropped(len(res.Dropped))
	if o.Policy == nil {
		return
	}
	for _, id := range res.Dropped {
		switch o.Policy.OnBackPressure(id) {
		case app.KickMember:
			o.KickBySID(id)
		case app.DropFrame, app.NoAction:
			log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("frame dropped on slow connection")
		}
	}
}

// KickBySID disconnects id and closes its transport.
func (o *Orchestrator) KickBySID(id domain.ConnID) {
	sig, ok := o.Registry.Signal(id)
	if !ok {
		return
	}
	log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("kicking slow connection")
	o.Disconnect(id)
	sig.Close()
}
