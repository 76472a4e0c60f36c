// Package domain contains entity without logic, just meta-data
package domain

import "github.com/google/uuid"

type ConnID string

// Connection is one live client's addressable endpoint.
// Room is empty until the client joins one.
type Connection struct {
	ID   ConnID `json:"connectionId"`
	Room RoomID `json:"roomId,omitempty"`
}

// NewConnID is assigned by the transport at upgrade time.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

func (c Connection) InRoom() bool { return c.Room != "" }
