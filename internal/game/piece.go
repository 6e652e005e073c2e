package game

import (
	"fmt"
	"strings"
)

// Piece identifies a player's token on the board.
type Piece uint8

const (
	// None marks an empty cell, or no winner.
	None Piece = iota
	// P1 always moves first.
	P1
	// P2 is assigned to the second player to join.
	P2
)

// Other returns the opposing piece. None maps to None.
func (p Piece) Other() Piece {
	switch p {
	case P1:
		return P2
	case P2:
		return P1
	default:
		return None
	}
}

// Valid reports whether p is one of the two player pieces.
func (p Piece) Valid() bool {
	return p == P1 || p == P2
}

func (p Piece) String() string {
	switch p {
	case P1:
		return "P1"
	case P2:
		return "P2"
	default:
		return "none"
	}
}

// Side is the edge of a row a piece is pushed in from.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide converts a wire token into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Left:
		return Left, nil
	case Right:
		return Right, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}
