package core

import "github.com/dkeye/Discuss/internal/domain"

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

// Record counts one delivery attempt to id.
func (p *PublishResult) Record(id domain.ConnID, err error) {
	if err != nil {
		p.Dropped = append(p.Dropped, id)
		return
	}
	p.SendTo++
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
// It is not safe for concurrent use; the registry serializes access.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	Members() []domain.ConnID
	Has(id domain.ConnID) bool

	AddMember(id domain.ConnID, conn SignalConnection)
	RemoveMember(id domain.ConnID)
	Broadcast(from domain.ConnID, data Frame) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomID `json:"name"`
	MemberCount int           `json:"client_count"`
}
