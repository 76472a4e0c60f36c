package domain

type RoomID string

// Room is a caller-chosen grouping of connections. Members are tracked by
// the registry, not here.
type Room struct {
	ID RoomID
}
