package core

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/sidestacker-server/internal/game"
)

func newFriendMatch(t *testing.T, rows, cols int) (*Match, *Client, *Client) {
	t.Helper()
	m := NewMatch("m1", MatchOptions{Rows: rows, Cols: cols})
	alice := NewClient("a", "alice", "m1", 0)
	bob := NewClient("b", "bob", "m1", 0)

	out, cerr := m.Join(alice)
	require.Nil(t, cerr)
	require.Empty(t, out, "first join must not announce anything")
	require.Equal(t, StatusWaiting, m.Status())

	out, cerr = m.Join(bob)
	require.Nil(t, cerr)
	require.Equal(t, StatusInProgress, m.Status())
	require.Len(t, out, 4)
	return m, alice, bob
}

func eventsFor(out []Delivery, c *Client) []*Event {
	var evs []*Event
	for _, d := range out {
		if d.To == c {
			evs = append(evs, d.Event)
		}
	}
	return evs
}

func TestJoinStartsMatchOnSecondPlayer(t *testing.T) {
	m := NewMatch("m1", MatchOptions{Rows: 4, Cols: 4})
	alice := NewClient("a", "alice", "m1", 0)
	bob := NewClient("b", "bob", "m1", 0)

	_, cerr := m.Join(alice)
	require.Nil(t, cerr)
	out, cerr := m.Join(bob)
	require.Nil(t, cerr)

	for _, c := range []*Client{alice, bob} {
		evs := eventsFor(out, c)
		require.Len(t, evs, 2)
		assert.Equal(t, EventJoin, evs[0].Kind)
		require.Equal(t, EventUpdate, evs[1].Kind)
		assert.Nil(t, evs[1].Update.Move)
		assert.Equal(t, game.P1, evs[1].Update.Turn)
		assert.Len(t, evs[1].Update.AvailableMoves, 4)
	}

	piece, ok := m.PieceOf(alice)
	require.True(t, ok)
	assert.Equal(t, game.P1, piece)
	piece, ok = m.PieceOf(bob)
	require.True(t, ok)
	assert.Equal(t, game.P2, piece)
}

func TestJoinRejections(t *testing.T) {
	m, alice, _ := newFriendMatch(t, 4, 4)

	_, cerr := m.Join(alice)
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeAlreadyJoined, cerr.Code)

	_, cerr = m.Join(NewClient("c", "carol", "m1", 0))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeMatchFull, cerr.Code)
}

func TestMoveBeforeSecondPlayer(t *testing.T) {
	m := NewMatch("m1", MatchOptions{Rows: 4, Cols: 4})
	alice := NewClient("a", "alice", "m1", 0)
	_, cerr := m.Join(alice)
	require.Nil(t, cerr)

	_, cerr = m.Move(alice, MoveSide(0, game.Left))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeMatchNotReady, cerr.Code)
	assert.Equal(t, 0, m.Board().Occupied())
}

func TestMoveOutOfTurnIsRejectedWithoutSideEffects(t *testing.T) {
	m, _, bob := newFriendMatch(t, 4, 4)
	before := m.Board().Grid()

	for i := 0; i < 2; i++ {
		out, cerr := m.Move(bob, MoveSide(0, game.Left))
		require.NotNil(t, cerr)
		assert.Equal(t, ErrCodeNotYourTurn, cerr.Code)
		assert.Empty(t, out)
		assert.Equal(t, before, m.Board().Grid())
		assert.Equal(t, game.P1, m.Turn())
	}
}

func TestMoveIllegalInputs(t *testing.T) {
	m, alice, _ := newFriendMatch(t, 2, 1)

	_, cerr := m.Move(alice, MoveSide(0, game.Side("up")))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeIllegalMove, cerr.Code)

	_, cerr = m.Move(alice, MoveSide(9, game.Left))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeIllegalMove, cerr.Code)

	_, cerr = m.Move(alice, &Command{Kind: CommandMove, Row: 0})
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeIllegalMove, cerr.Code)

	assert.Equal(t, 0, m.Board().Occupied())
	assert.Equal(t, game.P1, m.Turn())
}

func TestMoveIntoFullRowIsIllegal(t *testing.T) {
	m, alice, bob := newFriendMatch(t, 2, 1)

	_, cerr := m.Move(alice, MoveSide(0, game.Left))
	require.Nil(t, cerr)

	_, cerr = m.Move(bob, MoveSide(0, game.Right))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeIllegalMove, cerr.Code)
	assert.Equal(t, game.P2, m.Turn())
	assert.Equal(t, 1, m.Board().Occupied())
}

func TestAcceptedMoveFlipsTurnAndRecomputesMoves(t *testing.T) {
	m, alice, bob := newFriendMatch(t, 3, 3)

	out, cerr := m.Move(alice, MoveSide(1, game.Right))
	require.Nil(t, cerr)
	require.Len(t, out, 2)
	assert.Same(t, out[0].Event, out[1].Event)

	u := out[0].Event.Update
	require.NotNil(t, u.Move)
	assert.Equal(t, PlacedMove{Row: 1, Col: 2, Piece: game.P1}, *u.Move)
	assert.Equal(t, game.P2, u.Turn)
	assert.False(t, u.Finished)
	assert.Equal(t, []int{0, 1}, u.AvailableMoves[1])
	assert.Equal(t, []int{0, 2}, u.AvailableMoves[0])

	out, cerr = m.Move(bob, MoveCol(1, 1))
	require.Nil(t, cerr)
	u = out[0].Event.Update
	assert.Equal(t, PlacedMove{Row: 1, Col: 1, Piece: game.P2}, *u.Move)
	assert.Equal(t, game.P1, u.Turn)
	assert.Equal(t, []int{0}, u.AvailableMoves[1])
}

func TestMoveByColumnMustBeReachable(t *testing.T) {
	m, alice, _ := newFriendMatch(t, 1, 4)

	_, cerr := m.Move(alice, MoveCol(0, 2))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeIllegalMove, cerr.Code)

	out, cerr := m.Move(alice, MoveCol(0, 3))
	require.Nil(t, cerr)
	assert.Equal(t, 3, out[0].Event.Update.Move.Col)
}

func TestHorizontalWinFinishesMatch(t *testing.T) {
	m, alice, bob := newFriendMatch(t, 4, 4)

	for _, row := range []int{1, 2, 3} {
		_, cerr := m.Move(alice, MoveSide(0, game.Left))
		require.Nil(t, cerr)
		_, cerr = m.Move(bob, MoveSide(row, game.Left))
		require.Nil(t, cerr)
	}

	out, cerr := m.Move(alice, MoveSide(0, game.Left))
	require.Nil(t, cerr)
	u := out[0].Event.Update
	assert.Equal(t, PlacedMove{Row: 0, Col: 3, Piece: game.P1}, *u.Move)
	assert.True(t, u.Finished)
	assert.Equal(t, OutcomeWin, u.Outcome)
	assert.Equal(t, game.P1, u.Winner)
	assert.Equal(t, game.None, u.Turn)
	assert.Empty(t, u.AvailableMoves)

	assert.Equal(t, StatusFinished, m.Status())
	assert.Equal(t, game.P1, m.Winner())

	_, cerr = m.Move(bob, MoveSide(1, game.Left))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeMatchFinished, cerr.Code)

	_, cerr = m.Join(NewClient("c", "carol", "m1", 0))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeMatchFinished, cerr.Code)
}

func TestSingleCellBoardIsADraw(t *testing.T) {
	m, alice, bob := newFriendMatch(t, 1, 1)

	out, cerr := m.Move(alice, MoveSide(0, game.Right))
	require.Nil(t, cerr)
	u := out[0].Event.Update
	assert.Equal(t, PlacedMove{Row: 0, Col: 0, Piece: game.P1}, *u.Move)
	assert.True(t, u.Finished)
	assert.Equal(t, OutcomeDraw, u.Outcome)
	assert.Equal(t, game.None, u.Winner)

	end := m.End()
	require.Len(t, end, 2)
	assert.Equal(t, EventEnd, end[0].Event.Kind)
	assert.ElementsMatch(t, []*Client{alice, bob}, []*Client{end[0].To, end[1].To})

	assert.Empty(t, m.End(), "end is emitted once")
	assert.True(t, m.Ended())
}

func TestEndBeforeFinishIsNoop(t *testing.T) {
	m, _, _ := newFriendMatch(t, 2, 2)
	assert.Empty(t, m.End())
	assert.False(t, m.Ended())
}

func TestLeaveInProgressAbandonsMatch(t *testing.T) {
	m, alice, bob := newFriendMatch(t, 4, 4)

	out := m.Leave(alice)
	require.Len(t, out, 1)
	assert.Same(t, bob, out[0].To)
	u := out[0].Event.Update
	assert.True(t, u.Finished)
	assert.Equal(t, OutcomeAbandoned, u.Outcome)
	assert.Nil(t, u.Move)
	assert.Equal(t, StatusFinished, m.Status())

	assert.Empty(t, m.Leave(alice), "leaving twice is a no-op")
	assert.Empty(t, m.Leave(bob))
	assert.True(t, m.Empty())
}

func TestLeaveWhileWaitingFreesSeat(t *testing.T) {
	m := NewMatch("m1", MatchOptions{Rows: 2, Cols: 2})
	alice := NewClient("a", "alice", "m1", 0)
	_, cerr := m.Join(alice)
	require.Nil(t, cerr)

	assert.Empty(t, m.Leave(alice))
	assert.Equal(t, StatusWaiting, m.Status())
	assert.True(t, m.Empty())

	bob := NewClient("b", "bob", "m1", 0)
	_, cerr = m.Join(bob)
	require.Nil(t, cerr)
	piece, _ := m.PieceOf(bob)
	assert.Equal(t, game.P1, piece)
}

func TestBotMatchStartsOnFirstJoinAndReplies(t *testing.T) {
	bot := NewBot(rand.NewPCG(1, 2))
	m := NewMatch("m1", MatchOptions{Rows: 3, Cols: 3, Opponent: OpponentBot, Bot: bot})
	alice := NewClient("a", "alice", "m1", 0)

	out, cerr := m.Join(alice)
	require.Nil(t, cerr)
	require.Len(t, out, 2)
	assert.Equal(t, EventJoin, out[0].Event.Kind)
	assert.Equal(t, game.P1, out[1].Event.Update.Turn)
	assert.Equal(t, StatusInProgress, m.Status())

	_, cerr = m.Join(NewClient("b", "bob", "m1", 0))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrCodeMatchFull, cerr.Code)

	out, cerr = m.Move(alice, MoveSide(0, game.Left))
	require.Nil(t, cerr)
	require.Len(t, out, 2)
	assert.Equal(t, game.P1, out[0].Event.Update.Move.Piece)
	assert.Equal(t, game.P2, out[1].Event.Update.Move.Piece)
	assert.Equal(t, game.P1, out[1].Event.Update.Turn)
	assert.Equal(t, 2, m.Board().Occupied())
}

func TestBotMatchPlaysToCompletion(t *testing.T) {
	m := NewMatch("m1", MatchOptions{Rows: 5, Cols: 5, Opponent: OpponentBot, Bot: NewBot(rand.NewPCG(3, 4))})
	alice := NewClient("a", "alice", "m1", 0)
	_, cerr := m.Join(alice)
	require.Nil(t, cerr)

	human := NewBot(rand.NewPCG(5, 6))
	for m.Status() == StatusInProgress {
		row, side, ok := human.Choose(m.Board())
		require.True(t, ok)
		_, cerr := m.Move(alice, MoveSide(row, side))
		require.Nil(t, cerr)
	}
	assert.Equal(t, StatusFinished, m.Status())
	assert.Contains(t, []Outcome{OutcomeWin, OutcomeDraw}, m.Outcome())
}

func TestBotChooseOnFullBoard(t *testing.T) {
	b := game.NewBoard(1, 1)
	_, err := b.Place(0, game.Left, game.P1)
	require.NoError(t, err)

	_, _, ok := NewRandomBot().Choose(b)
	assert.False(t, ok)
}
