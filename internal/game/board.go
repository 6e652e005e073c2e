package game

import "fmt"

// AvailableMoves maps a row index to its legal landing columns.
// Full rows have no entry. A row with a single empty cell lists it once.
type AvailableMoves map[int][]int

// Board is a fixed rows x cols grid. Pieces enter a row from either end and
// stop against the nearest occupied cell, so the empty cells of every row
// always form one contiguous gap.
type Board struct {
	rows     int
	cols     int
	cells    []Piece
	occupied int
}

// NewBoard creates an empty board. Dimensions below 1 are clamped to 1.
func NewBoard(rows, cols int) *Board {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return &Board{
		rows:  rows,
		cols:  cols,
		cells: make([]Piece, rows*cols),
	}
}

// Rows returns the number of rows.
func (b *Board) Rows() int { return b.rows }

// Cols returns the number of columns.
func (b *Board) Cols() int { return b.cols }

// Occupied returns how many cells hold a piece.
func (b *Board) Occupied() int { return b.occupied }

// At returns the piece at (row, col), or None when empty or out of bounds.
func (b *Board) At(row, col int) Piece {
	if !b.inBounds(row, col) {
		return None
	}
	return b.cells[row*b.cols+col]
}

// IsFull reports whether every cell holds a piece.
func (b *Board) IsFull() bool {
	return b.occupied == len(b.cells)
}

// AvailableMoves computes the legal landing columns of every non-full row
// from the current occupancy.
func (b *Board) AvailableMoves() AvailableMoves {
	moves := make(AvailableMoves, b.rows)
	for r := 0; r < b.rows; r++ {
		left, right, ok := b.gap(r)
		if !ok {
			continue
		}
		if left == right {
			moves[r] = []int{left}
		} else {
			moves[r] = []int{left, right}
		}
	}
	return moves
}

// Landing resolves where a piece pushed into row from side would come to
// rest without changing the board.
func (b *Board) Landing(row int, side Side) (int, error) {
	if row < 0 || row >= b.rows {
		return 0, fmt.Errorf("%w: row %d", ErrOutOfBounds, row)
	}
	left, right, ok := b.gap(row)
	if !ok {
		return 0, fmt.Errorf("%w: row %d is full", ErrIllegalMove, row)
	}
	switch side {
	case Left:
		return left, nil
	case Right:
		return right, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
}

// Place pushes piece into row from side and returns the column it landed in.
// On error the board is unchanged.
func (b *Board) Place(row int, side Side, piece Piece) (int, error) {
	if !piece.Valid() {
		return 0, ErrInvalidPiece
	}
	col, err := b.Landing(row, side)
	if err != nil {
		return 0, err
	}
	b.cells[row*b.cols+col] = piece
	b.occupied++
	return col, nil
}

// SideFor maps an absolute landing column back onto the side that reaches
// it. Left wins when both sides land on the same cell.
func (b *Board) SideFor(row, col int) (Side, error) {
	if !b.inBounds(row, col) {
		return "", fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, row, col)
	}
	left, right, ok := b.gap(row)
	if !ok {
		return "", fmt.Errorf("%w: row %d is full", ErrIllegalMove, row)
	}
	switch col {
	case left:
		return Left, nil
	case right:
		return Right, nil
	default:
		return "", fmt.Errorf("%w: column %d is not reachable in row %d", ErrIllegalMove, col, row)
	}
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	cells := make([]Piece, len(b.cells))
	copy(cells, b.cells)
	return &Board{rows: b.rows, cols: b.cols, cells: cells, occupied: b.occupied}
}

// Grid returns the board as a row-major matrix.
func (b *Board) Grid() [][]Piece {
	grid := make([][]Piece, b.rows)
	for r := range grid {
		grid[r] = make([]Piece, b.cols)
		copy(grid[r], b.cells[r*b.cols:(r+1)*b.cols])
	}
	return grid
}

// gap returns the leftmost and rightmost empty columns of row.
func (b *Board) gap(row int) (left, right int, ok bool) {
	base := row * b.cols
	left = -1
	for c := 0; c < b.cols; c++ {
		if b.cells[base+c] == None {
			left = c
			break
		}
	}
	if left < 0 {
		return 0, 0, false
	}
	right = left
	for c := b.cols - 1; c > left; c-- {
		if b.cells[base+c] == None {
			right = c
			break
		}
	}
	return left, right, true
}

func (b *Board) inBounds(row, col int) bool {
	return row >= 0 && row < b.rows && col >= 0 && col < b.cols
}
