package core

import "github.com/vovakirdan/sidestacker-server/internal/game"

// Status is the lifecycle stage of a match.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Outcome describes how a finished match ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeWin       Outcome = "win"
	OutcomeDraw      Outcome = "draw"
	OutcomeAbandoned Outcome = "abandoned"
)

// Opponent selects who fills the second seat.
type Opponent string

const (
	OpponentFriend Opponent = "friend"
	OpponentBot    Opponent = "bot"
)

// ParseOpponent maps a lobby value to an Opponent, defaulting to friend.
func ParseOpponent(s string) Opponent {
	if Opponent(s) == OpponentBot {
		return OpponentBot
	}
	return OpponentFriend
}

// MatchOptions configures a new match.
type MatchOptions struct {
	Rows     int
	Cols     int
	Opponent Opponent
	// Bot picks moves for P2 in bot matches. A random bot is used when nil.
	Bot      *Bot
}

// Match is the authoritative state of one game. It is not safe for
// concurrent use; a single matchLoop goroutine owns each instance.
type Match struct {
	ID       string
	opponent Opponent
	board    *game.Board
	turn     game.Piece
	status   Status
	outcome  Outcome
	winner   game.Piece
	seats    map[game.Piece]*Client
	bot      *Bot
	ended    bool
}

// NewMatch creates a match waiting for its first player.
func NewMatch(id string, opts MatchOptions) *Match {
	m := &Match{
		ID:       id,
		opponent: opts.Opponent,
		board:    game.NewBoard(opts.Rows, opts.Cols),
		status:   StatusWaiting,
		seats:    make(map[game.Piece]*Client, 2),
	}
	if m.opponent == "" {
		m.opponent = OpponentFriend
	}
	if m.opponent == OpponentBot {
		m.bot = opts.Bot
		if m.bot == nil {
			m.bot = NewRandomBot()
		}
	}
	return m
}

// Status returns the lifecycle stage.
func (m *Match) Status() Status { return m.status }

// Outcome returns how the match ended, if it has.
func (m *Match) Outcome() Outcome { return m.outcome }

// Winner returns the winning piece, or None.
func (m *Match) Winner() game.Piece { return m.winner }

// Turn returns the piece expected to move next, or None when not in progress.
func (m *Match) Turn() game.Piece { return m.turn }

// Opponent returns who fills the second seat.
func (m *Match) Opponent() Opponent { return m.opponent }

// Board returns a copy of the current board.
func (m *Match) Board() *game.Board { return m.board.Clone() }

// Ended reports whether the end signal has been emitted.
func (m *Match) Ended() bool { return m.ended }

// PieceOf returns the piece assigned to c.
func (m *Match) PieceOf(c *Client) (game.Piece, bool) {
	for piece, seated := range m.seats {
		if seated == c {
			return piece, true
		}
	}
	return game.None, false
}

// Clients returns the seated human players in piece order.
func (m *Match) Clients() []*Client {
	out := make([]*Client, 0, 2)
	for _, piece := range []game.Piece{game.P1, game.P2} {
		if c, ok := m.seats[piece]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether no human player is seated.
func (m *Match) Empty() bool {
	return len(m.seats) == 0
}

// Join seats c in the next free slot. The second seat being filled starts
// the match: both players receive a join notice and the opening update.
func (m *Match) Join(c *Client) ([]Delivery, *CoreError) {
	if _, ok := m.PieceOf(c); ok {
		return nil, coreError(ErrCodeAlreadyJoined, "already joined this match")
	}
	if m.status == StatusFinished {
		return nil, coreError(ErrCodeMatchFinished, "match already finished")
	}

	piece := m.freeSeat()
	if piece == game.None {
		return nil, coreError(ErrCodeMatchFull, "match already has two players")
	}
	m.seats[piece] = c

	if m.opponent == OpponentBot || len(m.seats) == 2 {
		return m.start(), nil
	}
	return nil, nil
}

func (m *Match) freeSeat() game.Piece {
	if m.status != StatusWaiting {
		return game.None
	}
	if _, ok := m.seats[game.P1]; !ok {
		return game.P1
	}
	if _, ok := m.seats[game.P2]; !ok && m.opponent == OpponentFriend {
		return game.P2
	}
	return game.None
}

func (m *Match) start() []Delivery {
	m.status = StatusInProgress
	m.turn = game.P1

	out := m.broadcast(&Event{Kind: EventJoin, Match: m.ID})
	out = append(out, m.broadcast(&Event{
		Kind:  EventUpdate,
		Match: m.ID,
		Update: &Update{
			Turn:           m.turn,
			AvailableMoves: m.board.AvailableMoves(),
		},
	})...)
	return out
}

// Move validates and applies a move from c. A rejected move leaves the
// match untouched and only the returned error describes it. In bot matches
// the bot's reply is applied and included in the same deliveries.
func (m *Match) Move(c *Client, cmd *Command) ([]Delivery, *CoreError) {
	piece, ok := m.PieceOf(c)
	if !ok {
		return nil, coreError(ErrCodeNotInMatch, "not seated in this match")
	}
	switch m.status {
	case StatusWaiting:
		return nil, coreError(ErrCodeMatchNotReady, "waiting for the second player")
	case StatusFinished:
		return nil, coreError(ErrCodeMatchFinished, "match already finished")
	}
	if piece != m.turn {
		return nil, coreError(ErrCodeNotYourTurn, "it is not your turn")
	}

	side, cerr := m.resolveSide(cmd)
	if cerr != nil {
		return nil, cerr
	}
	out, err := m.play(piece, cmd.Row, side)
	if err != nil {
		return nil, coreErrorf(ErrCodeIllegalMove, "illegal move: %v", err)
	}

	if m.status == StatusInProgress && m.bot != nil && m.turn == game.P2 {
		if row, botSide, ok := m.bot.Choose(m.board); ok {
			reply, err := m.play(game.P2, row, botSide)
			if err == nil {
				out = append(out, reply...)
			}
		}
	}
	return out, nil
}

func (m *Match) resolveSide(cmd *Command) (game.Side, *CoreError) {
	if cmd == nil || cmd.Kind != CommandMove {
		return "", coreError(ErrCodeBadRequest, "unsupported command")
	}
	if cmd.Side != "" {
		side, err := game.ParseSide(string(cmd.Side))
		if err != nil {
			return "", coreErrorf(ErrCodeIllegalMove, "illegal move: %v", err)
		}
		return side, nil
	}
	if cmd.Col == nil {
		return "", coreError(ErrCodeIllegalMove, "move needs a side or a column")
	}
	side, err := m.board.SideFor(cmd.Row, *cmd.Col)
	if err != nil {
		return "", coreErrorf(ErrCodeIllegalMove, "illegal move: %v", err)
	}
	return side, nil
}

// play places piece and advances the state machine. The board is only
// mutated when Place succeeds.
func (m *Match) play(piece game.Piece, row int, side game.Side) ([]Delivery, error) {
	col, err := m.board.Place(row, side, piece)
	if err != nil {
		return nil, err
	}

	update := &Update{Move: &PlacedMove{Row: row, Col: col, Piece: piece}}
	switch {
	case game.Wins(m.board, row, col):
		m.finish(OutcomeWin, piece)
	case m.board.IsFull():
		m.finish(OutcomeDraw, game.None)
	default:
		m.turn = piece.Other()
	}
	m.fill(update)

	return m.broadcast(&Event{Kind: EventUpdate, Match: m.ID, Update: update}), nil
}

// Leave unseats c. Leaving a match in progress finishes it as abandoned and
// tells the remaining player.
func (m *Match) Leave(c *Client) []Delivery {
	piece, ok := m.PieceOf(c)
	if !ok {
		return nil
	}
	delete(m.seats, piece)

	if m.status != StatusInProgress {
		return nil
	}
	m.finish(OutcomeAbandoned, game.None)
	update := &Update{}
	m.fill(update)
	return m.broadcast(&Event{Kind: EventUpdate, Match: m.ID, Update: update})
}

// End emits the end signal once the match is finished. Later calls are
// no-ops.
func (m *Match) End() []Delivery {
	if m.status != StatusFinished || m.ended {
		return nil
	}
	m.ended = true
	return m.broadcast(&Event{Kind: EventEnd, Match: m.ID})
}

func (m *Match) finish(outcome Outcome, winner game.Piece) {
	m.status = StatusFinished
	m.outcome = outcome
	m.winner = winner
	m.turn = game.None
}

func (m *Match) fill(u *Update) {
	if m.status == StatusFinished {
		u.Finished = true
		u.Outcome = m.outcome
		u.Winner = m.winner
		u.Turn = game.None
		u.AvailableMoves = game.AvailableMoves{}
		return
	}
	u.Turn = m.turn
	u.AvailableMoves = m.board.AvailableMoves()
}

func (m *Match) broadcast(ev *Event) []Delivery {
	clients := m.Clients()
	out := make([]Delivery, 0, len(clients))
	for _, c := range clients {
		out = append(out, Delivery{To: c, Event: ev})
	}
	return out
}
