package core

import "github.com/vovakirdan/sidestacker-server/internal/game"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoin tells both players that the second player has arrived.
	EventJoin EventKind = iota
	// EventUpdate carries the latest move, the next turn and what is legal,
	// or the outcome once the match is finished.
	EventUpdate
	// EventEnd tells clients the match is over and they should leave.
	EventEnd
	// EventError notifies a single client about a rejected request.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventJoin:
		return "join"
	case EventUpdate:
		return "update"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in a match.
type Event struct {
	Kind   EventKind
	Match  string
	Update *Update
	Error  *CoreError
}

// PlacedMove is a piece that came to rest at an absolute cell.
type PlacedMove struct {
	Row   int
	Col   int
	Piece game.Piece
}

// Update is the authoritative state after a transition. Turn is None and
// AvailableMoves is empty once Finished is set.
type Update struct {
	Move           *PlacedMove
	Turn           game.Piece
	AvailableMoves game.AvailableMoves
	Finished       bool
	Outcome        Outcome
	Winner         game.Piece
}

// Delivery addresses an event to one client.
type Delivery struct {
	To    *Client
	Event *Event
}
