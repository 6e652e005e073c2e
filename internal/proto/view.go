package proto

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Cell addresses one board cell.
type Cell struct {
	Row int
	Col int
}

// View is the UI state a client derives from the server's messages. Both
// encodings produce the same View for the same match.
type View struct {
	Started        bool
	Cells          map[Cell]int
	LastMove       *MoveEvent
	Turn           int
	AvailableMoves map[int][]int
	Finished       bool
	Winner         *int
	Reason         string
	Ended          bool
	LastError      *Error
}

// NewView returns an empty view.
func NewView() *View {
	return &View{Cells: make(map[Cell]int), AvailableMoves: make(map[int][]int)}
}

// Apply folds msg into the view. Unknown events are ignored.
func (v *View) Apply(msg Received) error {
	if msg.Type == OutboundTypeError {
		v.LastError = msg.Error
		return nil
	}

	switch msg.Event {
	case EventJoin:
		v.Started = true
	case EventMove:
		var move MoveEvent
		if err := decode(msg, &move); err != nil {
			return err
		}
		v.place(move)
	case EventTurn:
		var turn TurnEvent
		if err := decode(msg, &turn); err != nil {
			return err
		}
		v.setTurn(turn.Turn, turn.AvailableMoves)
	case EventFinish:
		var finish FinishEvent
		if err := decode(msg, &finish); err != nil {
			return err
		}
		v.finish(finish.Winner, finish.Reason)
	case EventUpdate:
		var update UpdateEvent
		if err := decode(msg, &update); err != nil {
			return err
		}
		if update.Move != nil {
			v.place(*update.Move)
		}
		if update.Finished {
			reason := update.Reason
			switch {
			case update.WinningMove:
				reason = ReasonWin
			case update.Draw:
				reason = ReasonDraw
			}
			v.finish(update.Winner, reason)
		} else {
			v.setTurn(update.Turn, update.AvailableMoves)
		}
	case EventEnd:
		v.Ended = true
	}
	return nil
}

// CanMove reports whether piece may move now.
func (v *View) CanMove(piece int) bool {
	return !v.Finished && v.Turn == piece && len(v.AvailableMoves) > 0
}

// Rows returns the rows that still accept a piece, in order.
func (v *View) Rows() []int {
	return slices.Sorted(maps.Keys(v.AvailableMoves))
}

func (v *View) place(move MoveEvent) {
	v.Cells[Cell{Row: move.Row, Col: move.Col}] = move.Piece
	m := move
	v.LastMove = &m
}

func (v *View) setTurn(turn int, available map[int][]int) {
	v.Turn = turn
	v.AvailableMoves = make(map[int][]int, len(available))
	for row, cols := range available {
		v.AvailableMoves[row] = slices.Clone(cols)
	}
}

func (v *View) finish(winner *int, reason string) {
	v.Finished = true
	v.Reason = reason
	v.Winner = nil
	if winner != nil {
		w := *winner
		v.Winner = &w
	}
	v.Turn = 0
	v.AvailableMoves = make(map[int][]int)
}

func decode(msg Received, dst any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%s: missing data", msg.Event)
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		return fmt.Errorf("%s: %w", msg.Event, err)
	}
	return nil
}
