package core

import (
	"sync"
	"sync/atomic"
)

// Client is a connected player as seen by the core layer.
type Client struct {
	ID      string
	Name    string
	UserID  int64 // 0 for anonymous players
	MatchID string

	Commands chan *Command
	Events   chan *Event

	detached  chan struct{}
	closeOnce sync.Once
	evicted   atomic.Bool
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name, matchID string, userID int64) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:       id,
		Name:     name,
		UserID:   userID,
		MatchID:  matchID,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		detached: make(chan struct{}),
	}
}

// Detached is closed once the match stops serving this client. Events is
// closed at the same moment, after any queued events.
func (c *Client) Detached() <-chan struct{} {
	return c.detached
}

// Evicted reports whether the match detached the client because it fell
// behind on Events. Its view of the match is incomplete.
func (c *Client) Evicted() bool {
	return c.evicted.Load()
}

// detach is only called from the goroutine that delivers to Events.
func (c *Client) detach() {
	c.closeOnce.Do(func() {
		close(c.detached)
		close(c.Events)
	})
}
