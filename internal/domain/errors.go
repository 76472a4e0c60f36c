package domain

import "errors"

var (
	ErrEmptyCatalog  = errors.New("topic catalog is empty")
	ErrAlreadyInRoom = errors.New("already in room")
	ErrEmptyRoomID   = errors.New("room id is empty")
	ErrUnknownConn   = errors.New("unknown connection")
	ErrDuplicateConn = errors.New("connection already registered")
)
