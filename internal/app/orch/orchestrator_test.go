package orch

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Discuss/internal/app"
	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/core/coretest"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	mu        sync.Mutex
	opened    int
	closed    int
	rooms     int
	delivered map[domain.SignalKind]int
	undeliv   map[domain.SignalKind]int
	dropped   int
	triggers  []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		delivered: map[domain.SignalKind]int{},
		undeliv:   map[domain.SignalKind]int{},
	}
}

func (m *recordingMetrics) ConnectionOpened()   { m.mu.Lock(); m.opened++; m.mu.Unlock() }
func (m *recordingMetrics) ConnectionClosed()   { m.mu.Lock(); m.closed++; m.mu.Unlock() }
func (m *recordingMetrics) RoomsChanged(n int)  { m.mu.Lock(); m.rooms = n; m.mu.Unlock() }
func (m *recordingMetrics) FramesDropped(n int) { m.mu.Lock(); m.dropped += n; m.mu.Unlock() }

func (m *recordingMetrics) Relayed(kind domain.SignalKind, delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.delivered[kind]++
		return
	}
	m.undeliv[kind]++
}

func (m *recordingMetrics) TopicSelected(trigger string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, trigger)
}

func newTestOrch(t *testing.T, catalog []string, policy app.Policy) (*Orchestrator, *recordingMetrics) {
	t.Helper()
	topics, err := app.NewTopicSelector(catalog, nil)
	require.NoError(t, err)
	m := newRecordingMetrics()
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Topics:   topics,
		Policy:   policy,
		Metrics:  m,
	}, m
}

// connect registers ids and discards their welcome messages.
func connect(t *testing.T, o *Orchestrator, ids ...domain.ConnID) map[domain.ConnID]*coretest.Conn {
	t.Helper()
	conns := make(map[domain.ConnID]*coretest.Conn, len(ids))
	for _, id := range ids {
		c := coretest.NewConn()
		require.NoError(t, o.Connect(id, c))
		c.Reset()
		conns[id] = c
	}
	return conns
}

func join(t *testing.T, o *Orchestrator, room domain.RoomID, ids ...domain.ConnID) {
	t.Helper()
	for _, id := range ids {
		_, err := o.Join(id, room)
		require.NoError(t, err)
	}
}

func TestOrchestrator_ConnectSendsWelcome(t *testing.T) {
	o, m := newTestOrch(t, []string{"t1", "t2"}, app.DropPolicy{})

	first := coretest.NewConn()
	require.NoError(t, o.Connect("a", first))
	welcome := first.OfType(core.MsgWelcome)
	require.Len(t, welcome, 1)
	assert.Equal(t, "a", welcome[0].ConnectionID)
	assert.Empty(t, welcome[0].Topic)

	topic := o.StartDiscussion(TriggerSocket)
	second := coretest.NewConn()
	require.NoError(t, o.Connect("b", second))
	welcome = second.OfType(core.MsgWelcome)
	require.Len(t, welcome, 1)
	assert.Equal(t, topic, welcome[0].Topic, "late joiners learn the current topic")

	assert.ErrorIs(t, o.Connect("a", coretest.NewConn()), domain.ErrDuplicateConn)
	assert.Equal(t, 2, m.opened)
}

func TestOrchestrator_WelcomeFirstDuringStarts(t *testing.T) {
	const n = 100
	o, _ := newTestOrch(t, []string{"t1", "t2", "t3"}, app.DropPolicy{})
	conns := make([]*coretest.Conn, n)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range n {
			o.StartDiscussion(TriggerSocket)
		}
	}()
	go func() {
		defer wg.Done()
		for i := range conns {
			conns[i] = coretest.NewConn()
			assert.NoError(t, o.Connect(domain.ConnID(fmt.Sprintf("c%03d", i)), conns[i]))
		}
	}()
	wg.Wait()

	current, ok := o.CurrentTopic()
	require.True(t, ok)
	for i, c := range conns {
		msgs := c.Messages()
		require.NotEmpty(t, msgs)
		assert.Equal(t, core.MsgWelcome, msgs[0].Type, "conn %d", i)

		known := msgs[0].Topic
		for _, m := range msgs[1:] {
			if m.Type == core.MsgTopic {
				known = m.Value
			}
		}
		assert.Equal(t, current, known, "conn %d ends on a stale topic", i)
	}
}

func TestOrchestrator_LeaveNotifiesRemainingMember(t *testing.T) {
	o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")
	join(t, o, "R1", "A", "B")
	conns["B"].Reset()

	room, ok := o.Leave("A")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("R1"), room)

	left := conns["B"].OfType(core.MsgPeerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "A", left[0].ConnectionID)
	assert.Equal(t, []domain.ConnID{"B"}, o.MembersOf("R1"))

	_, ok = o.Leave("A")
	assert.False(t, ok)
	assert.Len(t, conns["B"].OfType(core.MsgPeerLeft), 1)
}

func TestOrchestrator_JoinNotifiesExistingMembers(t *testing.T) {
	o, m := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B", "C")
	join(t, o, "R1", "A")

	peers, err := o.Join("B", "R1")
	require.NoError(t, err)
	assert.Equal(t, []domain.ConnID{"A"}, peers)

	joined := conns["A"].OfType(core.MsgPeerJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "B", joined[0].ConnectionID)
	assert.Empty(t, conns["B"].Frames())
	assert.Empty(t, conns["C"].Frames())
	assert.Equal(t, 1, m.rooms)
}

func TestOrchestrator_DuplicateJoinRejected(t *testing.T) {
	o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")
	join(t, o, "R1", "A")
	join(t, o, "R2", "B")
	conns["B"].Reset()

	_, err := o.Join("A", "R2")
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
	assert.Empty(t, conns["B"].Frames(), "a rejected join notifies nobody")
	assert.Equal(t, []domain.ConnID{"A"}, o.MembersOf("R1"))
	assert.Equal(t, []domain.ConnID{"B"}, o.MembersOf("R2"))
}

func TestOrchestrator_RelayOffer(t *testing.T) {
	o, m := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")
	payload := json.RawMessage(`{"type":"offer","sdp":"v=0\r\no=- 46117 2 IN IP4 127.0.0.1\r\n"}`)

	assert.True(t, o.Relay(domain.SignalOffer, "A", "B", payload))

	offers := conns["B"].OfType(string(domain.SignalOffer))
	require.Len(t, offers, 1)
	assert.Equal(t, "A", offers[0].From)
	assert.Equal(t, string(payload), string(offers[0].Payload))
	assert.Empty(t, conns["A"].Frames())
	assert.Equal(t, 1, m.delivered[domain.SignalOffer])
}

func TestOrchestrator_RelayKeepsWhitespace(t *testing.T) {
	o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")
	payload := json.RawMessage("{\"sdp\": \"v=0\",\n  \"type\" : \"offer\"}")

	require.True(t, o.Relay(domain.SignalOffer, "A", "B", payload))

	frames := conns["B"].Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, `{"type":"offer","from":"A","payload":`+string(payload)+`}`, string(frames[0]))
}

func TestOrchestrator_RelayKinds(t *testing.T) {
	tests := []struct {
		kind domain.SignalKind
		want bool
	}{
		{kind: domain.SignalOffer, want: true},
		{kind: domain.SignalAnswer, want: true},
		{kind: domain.SignalICECandidate, want: true},
		{kind: "renegotiate", want: false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
			conns := connect(t, o, "A", "B")

			got := o.Relay(tt.kind, "A", "B", json.RawMessage(`{"candidate":"x"}`))
			assert.Equal(t, tt.want, got)
			assert.Len(t, conns["B"].OfType(string(tt.kind)), map[bool]int{true: 1, false: 0}[tt.want])
		})
	}
}

func TestOrchestrator_RelayIgnoresRoomMembership(t *testing.T) {
	o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")
	join(t, o, "R1", "A")
	join(t, o, "R2", "B")
	conns["B"].Reset()

	assert.True(t, o.Relay(domain.SignalAnswer, "A", "B", json.RawMessage(`{}`)))
	assert.Len(t, conns["B"].OfType(string(domain.SignalAnswer)), 1)
}

func TestOrchestrator_RelayToUnknownTarget(t *testing.T) {
	o, m := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")

	for _, kind := range []domain.SignalKind{domain.SignalOffer, domain.SignalAnswer, domain.SignalICECandidate} {
		assert.NotPanics(t, func() {
			assert.False(t, o.Relay(kind, "A", "nobody", json.RawMessage(`{}`)))
		})
	}
	assert.Empty(t, conns["A"].Frames())
	assert.Empty(t, conns["B"].Frames())

	assert.True(t, o.Relay(domain.SignalOffer, "A", "B", json.RawMessage(`{}`)), "sender stays usable")
	assert.Equal(t, 1, m.undeliv[domain.SignalOffer])
}

func TestOrchestrator_RelayAfterDisconnect(t *testing.T) {
	o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B")
	o.Disconnect("B")

	assert.False(t, o.Relay(domain.SignalICECandidate, "A", "B", json.RawMessage(`{}`)))
	assert.Empty(t, conns["B"].Frames())
}

func TestOrchestrator_DisconnectMidRoom(t *testing.T) {
	o, m := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B", "C")
	join(t, o, "R1", "A", "B", "C")
	conns["B"].Reset()
	conns["C"].Reset()

	o.Disconnect("A")
	o.Disconnect("A")

	for _, id := range []domain.ConnID{"B", "C"} {
		left := conns[id].OfType(core.MsgPeerLeft)
		require.Len(t, left, 1, "member %s", id)
		assert.Equal(t, "A", left[0].ConnectionID)
	}
	assert.Equal(t, []domain.ConnID{"B", "C"}, o.MembersOf("R1"))
	assert.False(t, o.Registry.IsLive("A"))
	assert.Equal(t, 1, m.closed)

	// A new connection with the same id starts without a room.
	connect(t, o, "A")
	me, ok := o.Registry.Connection("A")
	require.True(t, ok)
	assert.False(t, me.InRoom())
	join(t, o, "R2", "A")
	assert.Equal(t, []domain.ConnID{"B", "C"}, o.MembersOf("R1"))
}

func TestOrchestrator_ConcurrentJoin(t *testing.T) {
	const n = 100
	o, _ := newTestOrch(t, []string{"t"}, app.DropPolicy{})
	ids := make([]domain.ConnID, n)
	for i := range ids {
		ids[i] = domain.ConnID(fmt.Sprintf("c%03d", i))
	}
	conns := connect(t, o, ids...)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Join(id, "R1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, ids, o.MembersOf("R1"))
	total := 0
	for _, c := range conns {
		total += len(c.OfType(core.MsgPeerJoined))
	}
	assert.Equal(t, n*(n-1)/2, total, "each join notifies exactly the members already present")
}

func TestOrchestrator_StartDiscussionBroadcastsToAll(t *testing.T) {
	o, m := newTestOrch(t, []string{"t1", "t2", "t3"}, app.DropPolicy{})
	conns := connect(t, o, "A", "B", "C")
	join(t, o, "R1", "A")
	for _, c := range conns {
		c.Reset()
	}

	topic := o.StartDiscussion(TriggerHTTP)

	for id, c := range conns {
		msgs := c.OfType(core.MsgTopic)
		require.Len(t, msgs, 1, "conn %s", id)
		assert.Equal(t, topic, msgs[0].Value)
	}
	current, ok := o.CurrentTopic()
	assert.True(t, ok)
	assert.Equal(t, topic, current)
	assert.Equal(t, []string{TriggerHTTP}, m.triggers)
}

func TestOrchestrator_FetchTopicDoesNotBroadcast(t *testing.T) {
	o, m := newTestOrch(t, []string{"t1", "t2"}, app.DropPolicy{})
	conns := connect(t, o, "A")

	first := o.FetchTopic()
	second := o.FetchTopic()

	assert.NotEqual(t, first, second)
	assert.Empty(t, conns["A"].Frames())
	assert.Equal(t, []string{TriggerFetch, TriggerFetch}, m.triggers)
}

func TestOrchestrator_ConcurrentStartsNeverRepeat(t *testing.T) {
	o, _ := newTestOrch(t, []string{"t1", "t2", "t3"}, app.DropPolicy{})
	conns := connect(t, o, "A")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.StartDiscussion(TriggerSocket)
		}()
	}
	wg.Wait()

	msgs := conns["A"].OfType(core.MsgTopic)
	require.Len(t, msgs, 50)
	for i := 1; i < len(msgs); i++ {
		assert.NotEqual(t, msgs[i-1].Value, msgs[i].Value, "broadcast %d repeats its predecessor", i)
	}
}

func TestOrchestrator_SlowConsumerPolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     app.Policy
		wantKicked bool
	}{
		{name: "drop keeps the connection", policy: app.DropPolicy{}, wantKicked: false},
		{name: "kick closes the connection", policy: app.KickPolicy{}, wantKicked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, m := newTestOrch(t, []string{"t1", "t2"}, tt.policy)
			conns := connect(t, o, "A", "B", "slow")
			join(t, o, "R1", "A", "slow")
			conns["A"].Reset()
			conns["slow"].SetFull(true)

			o.StartDiscussion(TriggerSocket)

			assert.Equal(t, tt.wantKicked, conns["slow"].Closed())
			assert.Equal(t, !tt.wantKicked, o.Registry.IsLive("slow"))
			assert.Len(t, conns["B"].OfType(core.MsgTopic), 1, "healthy connections are unaffected")
			assert.GreaterOrEqual(t, m.dropped, 1)
			if tt.wantKicked {
				left := conns["A"].OfType(core.MsgPeerLeft)
				require.Len(t, left, 1)
				assert.Equal(t, "slow", left[0].ConnectionID)
			}
		})
	}
}
