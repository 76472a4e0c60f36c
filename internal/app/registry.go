package app

import (
	"fmt"
	"sync"

	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Room domain.RoomID
	Conn core.SignalConnection
}

// Registry tracks live connections and room membership under one lock, so a
// dead connection is never listed as a room member.
// Notifications are pushed while the lock is held; TrySend never blocks, and
// this keeps join/leave notifications ordered per room.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*connEntry
	rooms map[domain.RoomID]core.RoomService
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ConnID]*connEntry),
		rooms: make(map[domain.RoomID]core.RoomService),
	}
}

// Register adds a live connection with no room. greet, when non-nil, is
// queued on conn before any other frame can reach it.
func (r *Registry) Register(id domain.ConnID, conn core.SignalConnection, greet core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		return fmt.Errorf("register %s: %w", id, domain.ErrDuplicateConn)
	}
	r.conns[id] = &connEntry{Conn: conn}
	if greet != nil {
		if err := conn.TrySend(greet); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Str("conn", string(id)).Msg("greeting not delivered")
		}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
	return nil
}

// Unregister removes the connection and its room membership in one step and
// sends left to the remaining members. Unknown ids are a no-op.
func (r *Registry) Unregister(id domain.ConnID, left core.Frame) (domain.RoomID, core.PublishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[id]
	if !ok {
		return "", core.PublishResult{}, false
	}
	roomID, res := r.leaveLocked(id, entry, left)
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(roomID)).Msg("unregistered connection")
	return roomID, res, true
}

func (r *Registry) IsLive(id domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) Connection(id domain.ConnID) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[id]
	if !ok {
		return domain.Connection{}, false
	}
	return domain.Connection{ID: id, Room: entry.Room}, true
}

// Signal returns the transport of a live connection.
func (r *Registry) Signal(id domain.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Join adds id to roomID and sends joined to the members already there.
// It returns the ids of those members.
func (r *Registry) Join(id domain.ConnID, roomID domain.RoomID, joined core.Frame) ([]domain.ConnID, core.PublishResult, error) {
	if roomID == "" {
		return nil, core.PublishResult{}, domain.ErrEmptyRoomID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[id]
	if !ok {
		return nil, core.PublishResult{}, fmt.Errorf("join %s: %w", id, domain.ErrUnknownConn)
	}
	if entry.Room != "" {
		return nil, core.PublishResult{}, fmt.Errorf("join %s: %w %q", roomID, domain.ErrAlreadyInRoom, entry.Room)
	}
	room := r.getOrCreateLocked(roomID)
	peers := room.Members()
	res := room.Broadcast(id, joined)
	room.AddMember(id, entry.Conn)
	entry.Room = roomID
	return peers, res, nil
}

// Leave is idempotent; the returned room id is empty when id held no room.
func (r *Registry) Leave(id domain.ConnID, left core.Frame) (domain.RoomID, core.PublishResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[id]
	if !ok {
		return "", core.PublishResult{}
	}
	return r.leaveLocked(id, entry, left)
}

func (r *Registry) leaveLocked(id domain.ConnID, entry *connEntry, left core.Frame) (domain.RoomID, core.PublishResult) {
	roomID := entry.Room
	if roomID == "" {
		return "", core.PublishResult{}
	}
	entry.Room = ""
	room, ok := r.rooms[roomID]
	if !ok {
		return roomID, core.PublishResult{}
	}
	room.RemoveMember(id)
	res := room.Broadcast(id, left)
	r.dropIfEmptyLocked(roomID)
	return roomID, res
}

func (r *Registry) MembersOf(roomID domain.RoomID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return []domain.ConnID{}
	}
	return room.Members()
}

// Send delivers data to exactly one live connection.
func (r *Registry) Send(to domain.ConnID, data core.Frame) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.conns[to]
	if !ok {
		return domain.ErrUnknownConn
	}
	return entry.Conn.TrySend(data)
}

// Broadcast delivers data to every live connection, in a room or not.
func (r *Registry) Broadcast(data core.Frame) core.PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := core.PublishResult{}
	for id, entry := range r.conns {
		res.Record(id, entry.Conn.TrySend(data))
	}
	log.Debug().Str("module", "app.registry").Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
