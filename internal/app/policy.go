package app

import (
	"fmt"

	"github.com/dkeye/Discuss/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(id domain.ConnID) BackpressureAction
}

// DropPolicy keeps the connection and loses the frame (at-most-once delivery).
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ConnID) BackpressureAction { return DropFrame }

// KickPolicy closes slow connections.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.ConnID) BackpressureAction { return KickMember }

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown slow consumer policy %q", name)
}
