// Package coretest provides an in-memory core.SignalConnection for tests.
package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Discuss/internal/core"
)

// Conn records every frame it accepts. Setting Full makes TrySend report
// backpressure.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func NewConn() *Conn { return &Conn{} }

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) SetFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// Message is a decoded frame. Payload keeps the raw bytes.
type Message struct {
	Type         string          `json:"type"`
	ConnectionID string          `json:"connectionId"`
	From         string          `json:"from"`
	Value        string          `json:"value"`
	Topic        string          `json:"topic"`
	RoomID       string          `json:"roomId"`
	Members      []string        `json:"members"`
	Error        string          `json:"error"`
	Payload      json.RawMessage `json:"payload"`
}

// Messages decodes the recorded frames; undecodable frames are skipped.
func (c *Conn) Messages() []Message {
	var out []Message
	for _, f := range c.Frames() {
		var m Message
		if err := json.Unmarshal(f, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// OfType returns the decoded frames with the given type.
func (c *Conn) OfType(typ string) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}
