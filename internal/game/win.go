package game

// WinLength is the run length that wins the game.
const WinLength = 4

// axes are the four line directions checked from the placed cell.
var axes = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal down-right
	{1, -1}, // diagonal down-left
}

// Wins reports whether the piece at (row, col) is part of a run of at least
// WinLength same pieces on any axis. Only cells reachable from the anchor
// are scanned.
func Wins(b *Board, row, col int) bool {
	return LongestRun(b, row, col) >= WinLength
}

// LongestRun returns the length of the longest run through (row, col),
// counting in both directions along each axis. An empty anchor yields 0.
func LongestRun(b *Board, row, col int) int {
	piece := b.At(row, col)
	if piece == None {
		return 0
	}

	longest := 0
	for _, d := range axes {
		count := 1

		r, c := row+d[0], col+d[1]
		for b.At(r, c) == piece {
			count++
			r += d[0]
			c += d[1]
		}

		r, c = row-d[0], col-d[1]
		for b.At(r, c) == piece {
			count++
			r -= d[0]
			c -= d[1]
		}

		if count > longest {
			longest = count
		}
	}
	return longest
}
