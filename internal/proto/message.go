package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello = "hello"
	InboundTypeMove  = "move"
	InboundTypePing  = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names. The events encoding uses move, turn and finish;
// the update encoding folds them into update.
const (
	EventHello  = "hello"
	EventJoin   = "join"
	EventMove   = "move"
	EventTurn   = "turn"
	EventFinish = "finish"
	EventUpdate = "update"
	EventEnd    = "end"
	EventPong   = "pong"
)

// Finish reasons.
const (
	ReasonWin       = "win"
	ReasonDraw      = "draw"
	ReasonAbandoned = "abandoned"
)

// HelloData is optionally sent by the client to check protocol support.
type HelloData struct {
	Protocol int `json:"protocol,omitempty"`
}

// MoveData requests a move. Side is preferred; Col accepts the absolute
// landing cell instead.
type MoveData struct {
	Row  int    `json:"row"`
	Side string `json:"side,omitempty"`
	Col  *int   `json:"col,omitempty"`
}

// Validate checks the shape of the request, not its legality.
func (d MoveData) Validate() error {
	if d.Row < 0 {
		return fmt.Errorf("row must not be negative, got %d", d.Row)
	}
	if d.Side == "" && d.Col == nil {
		return errors.New("side or col is required")
	}
	if d.Side != "" && d.Col != nil {
		return errors.New("side and col are mutually exclusive")
	}
	return nil
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Received is an outbound message as decoded by a client.
type Received struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Empty is the payload of join, end and pong.
type Empty struct{}

// HelloEvent acknowledges a hello.
type HelloEvent struct {
	Protocol int    `json:"protocol"`
	Match    string `json:"match"`
	Encoding string `json:"encoding"`
}

// MoveEvent is a piece that came to rest at an absolute cell.
type MoveEvent struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Piece int `json:"piece"`
}

// TurnEvent names the player to move and the legal landing columns per
// row. Full rows are absent.
type TurnEvent struct {
	Turn           int           `json:"turn"`
	AvailableMoves map[int][]int `json:"availableMoves"`
}

// FinishEvent ends play. Winner is null for draws and abandoned matches.
type FinishEvent struct {
	Winner *int   `json:"winner"`
	Reason string `json:"reason"`
}

// UpdateEvent is the consolidated form of move, turn and finish.
type UpdateEvent struct {
	Move           *MoveEvent    `json:"move,omitempty"`
	Turn           int           `json:"turn"`
	AvailableMoves map[int][]int `json:"availableMoves"`
	WinningMove    bool          `json:"winningMove"`
	Draw           bool          `json:"draw"`
	Finished       bool          `json:"finished"`
	Winner         *int          `json:"winner"`
	Reason         string        `json:"reason,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}
