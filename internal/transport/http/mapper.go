package http

import (
	"encoding/json"

	"github.com/vovakirdan/sidestacker-server/internal/config"
	"github.com/vovakirdan/sidestacker-server/internal/core"
	"github.com/vovakirdan/sidestacker-server/internal/game"
	"github.com/vovakirdan/sidestacker-server/internal/proto"
)

func moveToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	var move proto.MoveData
	if err := json.Unmarshal(inbound.Data, &move); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed move payload"}
	}
	if err := move.Validate(); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
	}
	if move.Col != nil {
		return core.MoveCol(move.Row, *move.Col), nil
	}
	return core.MoveSide(move.Row, game.Side(move.Side)), nil
}

// outboundsFromEvent renders a core event in the requested encoding. The
// events encoding splits an update into move and turn or finish messages.
func outboundsFromEvent(event *core.Event, encoding string) []proto.Outbound {
	switch event.Kind {
	case core.EventJoin:
		return []proto.Outbound{eventOutbound(proto.EventJoin, proto.Empty{})}
	case core.EventEnd:
		return []proto.Outbound{eventOutbound(proto.EventEnd, proto.Empty{})}
	case core.EventError:
		return []proto.Outbound{errorOutbound(event.Error)}
	case core.EventUpdate:
		if event.Update == nil {
			return nil
		}
		if encoding == config.EncodingUpdate {
			return []proto.Outbound{eventOutbound(proto.EventUpdate, updatePayload(event.Update))}
		}
		return splitUpdate(event.Update)
	default:
		return nil
	}
}

func splitUpdate(u *core.Update) []proto.Outbound {
	out := make([]proto.Outbound, 0, 2)
	if u.Move != nil {
		out = append(out, eventOutbound(proto.EventMove, movePayload(u.Move)))
	}
	if u.Finished {
		out = append(out, eventOutbound(proto.EventFinish, proto.FinishEvent{
			Winner: winnerValue(u.Winner),
			Reason: string(u.Outcome),
		}))
		return out
	}
	out = append(out, eventOutbound(proto.EventTurn, proto.TurnEvent{
		Turn:           int(u.Turn),
		AvailableMoves: availableMoves(u.AvailableMoves),
	}))
	return out
}

func updatePayload(u *core.Update) proto.UpdateEvent {
	payload := proto.UpdateEvent{
		Turn:           int(u.Turn),
		AvailableMoves: availableMoves(u.AvailableMoves),
		Finished:       u.Finished,
		Winner:         winnerValue(u.Winner),
	}
	if u.Move != nil {
		m := movePayload(u.Move)
		payload.Move = &m
	}
	if u.Finished {
		switch u.Outcome {
		case core.OutcomeWin:
			payload.WinningMove = u.Move != nil
		case core.OutcomeDraw:
			payload.Draw = true
		}
		payload.Reason = string(u.Outcome)
	}
	return payload
}

func movePayload(m *core.PlacedMove) proto.MoveEvent {
	return proto.MoveEvent{Row: m.Row, Col: m.Col, Piece: int(m.Piece)}
}

func availableMoves(moves game.AvailableMoves) map[int][]int {
	if moves == nil {
		return map[int][]int{}
	}
	return map[int][]int(moves)
}

func winnerValue(p game.Piece) *int {
	if !p.Valid() {
		return nil
	}
	w := int(p)
	return &w
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func errorOutbound(cerr *core.CoreError) proto.Outbound {
	if cerr == nil {
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
	}
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: cerr.Code, Msg: cerr.Message},
	}
}

func protoError(code, msg string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: code, Msg: msg}}
}
