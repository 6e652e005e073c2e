package core

import (
	"math/rand/v2"
	"sort"

	"github.com/vovakirdan/sidestacker-server/internal/game"
)

// Bot plays the second seat in bot matches by choosing uniformly among the
// legal (row, side) insertions.
type Bot struct {
	rng *rand.Rand
}

// NewBot creates a bot drawing from src.
func NewBot(src rand.Source) *Bot {
	return &Bot{rng: rand.New(src)}
}

// NewRandomBot creates a bot with a randomly seeded source.
func NewRandomBot() *Bot {
	return NewBot(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

type botMove struct {
	row  int
	side game.Side
}

// Choose returns a legal move, or ok=false when the board is full.
func (b *Bot) Choose(board *game.Board) (row int, side game.Side, ok bool) {
	available := board.AvailableMoves()
	rows := make([]int, 0, len(available))
	for r := range available {
		rows = append(rows, r)
	}
	// Map order is random; sort so a seeded source replays the same game.
	sort.Ints(rows)

	candidates := make([]botMove, 0, 2*len(rows))
	for _, r := range rows {
		candidates = append(candidates, botMove{row: r, side: game.Left})
		if len(available[r]) > 1 {
			candidates = append(candidates, botMove{row: r, side: game.Right})
		}
	}
	if len(candidates) == 0 {
		return 0, "", false
	}
	pick := candidates[b.rng.IntN(len(candidates))]
	return pick.row, pick.side, true
}
