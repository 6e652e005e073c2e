package core

import "github.com/vovakirdan/sidestacker-server/internal/game"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandMove pushes the sender's piece into a row.
	CommandMove CommandKind = iota
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	Row  int
	// Side selects the insertion edge. When empty, Col names the absolute
	// landing cell instead and must be one of the row's legal columns.
	Side game.Side
	Col  *int
}

// MoveSide builds a move command from a row and side.
func MoveSide(row int, side game.Side) *Command {
	return &Command{Kind: CommandMove, Row: row, Side: side}
}

// MoveCol builds a move command from an absolute cell.
func MoveCol(row, col int) *Command {
	return &Command{Kind: CommandMove, Row: row, Col: &col}
}
