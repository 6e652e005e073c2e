package game

import "errors"

var (
	// ErrIllegalMove is returned when a row has no empty cell left.
	ErrIllegalMove = errors.New("illegal move")
	// ErrInvalidSide is returned for side tokens other than left and right.
	ErrInvalidSide = errors.New("invalid side")
	// ErrOutOfBounds is returned for rows or columns outside the board.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrInvalidPiece is returned when placing something other than P1 or P2.
	ErrInvalidPiece = errors.New("invalid piece")
)
