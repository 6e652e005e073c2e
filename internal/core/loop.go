package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type inboxKind int

const (
	inboxJoin inboxKind = iota
	inboxLeave
	inboxCommand
	inboxSnapshot
)

type inboxItem struct {
	kind   inboxKind
	client *Client
	cmd    *Command
	reply  chan MatchSnapshot
}

// matchLoop is the single writer of one Match. Items are handled strictly
// one at a time and every delivery for an item is queued before the next
// item is read.
type matchLoop struct {
	hub   *Hub
	match *Match
	inbox chan inboxItem
	done  chan struct{}
	log   zerolog.Logger
}

func newMatchLoop(h *Hub, m *Match) *matchLoop {
	return &matchLoop{
		hub:   h,
		match: m,
		// Unbuffered: once the loop stops receiving, post can only observe done.
		inbox: make(chan inboxItem),
		done:  make(chan struct{}),
		log:   h.log.With().Str("match_id", m.ID).Logger(),
	}
}

func (l *matchLoop) post(item inboxItem) bool {
	select {
	case l.inbox <- item:
		return true
	case <-l.done:
		return false
	}
}

// pump forwards commands from c until c is detached or the loop exits.
func (l *matchLoop) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			if !l.post(inboxItem{kind: inboxCommand, client: c, cmd: cmd}) {
				return
			}
		case <-c.detached:
			return
		case <-l.done:
			return
		}
	}
}

func (l *matchLoop) run(ctx context.Context) {
	defer l.hub.wg.Done()

	var endTimer *time.Timer
	var endC <-chan time.Time
	defer func() {
		if endTimer != nil {
			endTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.exit()
			return
		case <-endC:
			l.deliver(l.match.End())
			l.exit()
			return
		case item := <-l.inbox:
			l.handle(item)

			if (item.kind == inboxJoin || item.kind == inboxLeave) && l.match.Empty() {
				l.exit()
				return
			}
			if l.match.Status() == StatusFinished && endC == nil {
				if l.hub.cfg.EndGrace <= 0 {
					l.deliver(l.match.End())
					l.exit()
					return
				}
				endTimer = time.NewTimer(l.hub.cfg.EndGrace)
				endC = endTimer.C
			}
		}
	}
}

func (l *matchLoop) handle(item inboxItem) {
	m := l.match
	switch item.kind {
	case inboxJoin:
		c := item.client
		before := m.Status()
		out, cerr := m.Join(c)
		if cerr != nil {
			l.log.Debug().Str("client_id", c.ID).Str("code", cerr.Code).Msg("join rejected")
			l.deliverError(c, cerr)
			if cerr.Code != ErrCodeAlreadyJoined {
				c.detach()
			}
			return
		}
		piece, _ := m.PieceOf(c)
		l.log.Info().Str("client_id", c.ID).Stringer("piece", piece).Msg("player joined")
		if before == StatusWaiting && m.Status() == StatusInProgress {
			l.log.Info().Msg("match started")
			if m.Opponent() == OpponentFriend && c.UserID > 0 {
				l.recordJoin(c.UserID)
			}
		}
		l.deliver(out)

	case inboxLeave:
		c := item.client
		before := m.Status()
		out := m.Leave(c)
		c.detach()
		l.deliver(out)
		if before == StatusInProgress && m.Status() == StatusFinished {
			l.hub.metrics.MatchesAbandoned.Add(1)
			l.log.Info().Str("client_id", c.ID).Msg("match abandoned")
		}

	case inboxCommand:
		c := item.client
		out, cerr := m.Move(c, item.cmd)
		if cerr != nil {
			l.hub.metrics.MovesRejected.Add(1)
			l.log.Debug().
				Str("client_id", c.ID).
				Str("code", cerr.Code).
				Int("row", item.cmd.Row).
				Str("side", string(item.cmd.Side)).
				Msg("move rejected")
			l.deliverError(c, cerr)
			return
		}
		moves := countMoves(out)
		l.hub.metrics.MovesAccepted.Add(int64(moves))
		l.deliver(out)
		if m.Status() == StatusFinished {
			l.hub.metrics.MatchesFinished.Add(1)
			l.log.Info().
				Str("outcome", string(m.Outcome())).
				Stringer("winner", m.Winner()).
				Msg("match finished")
		}

	case inboxSnapshot:
		board := m.Board()
		item.reply <- MatchSnapshot{
			ID:       m.ID,
			Status:   m.Status(),
			Opponent: m.Opponent(),
			Turn:     m.Turn(),
			Players:  len(m.Clients()),
			Moves:    board.Occupied(),
			Rows:     board.Rows(),
			Cols:     board.Cols(),
			Outcome:  m.Outcome(),
			Winner:   m.Winner(),
		}
	}
}

// countMoves returns how many placed moves out describes, counting each
// broadcast update once.
func countMoves(out []Delivery) int {
	seen := make(map[*Event]struct{}, len(out))
	for _, d := range out {
		if d.Event.Kind == EventUpdate && d.Event.Update != nil && d.Event.Update.Move != nil {
			seen[d.Event] = struct{}{}
		}
	}
	return len(seen)
}

func (l *matchLoop) deliverError(c *Client, cerr *CoreError) {
	l.deliver([]Delivery{{To: c, Event: &Event{Kind: EventError, Match: l.match.ID, Error: cerr}}})
}

func (l *matchLoop) deliver(out []Delivery) {
	for _, d := range out {
		select {
		case <-d.To.detached:
			continue
		default:
		}
		select {
		case d.To.Events <- d.Event:
		default:
			// A skipped event would leave the client with a wrong board, so
			// cut it loose instead. Its disconnect then counts as a leave.
			d.To.evicted.Store(true)
			d.To.detach()
			l.hub.metrics.ClientsEvicted.Add(1)
			l.log.Warn().Str("client_id", d.To.ID).Stringer("event", d.Event.Kind).Msg("client event buffer full, detaching")
		}
	}
}

func (l *matchLoop) recordJoin(userID int64) {
	if l.hub.lobby == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.hub.lobby.JoinMatch(ctx, l.match.ID, userID); err != nil {
		l.log.Warn().Err(err).Int64("player_id", userID).Msg("failed to record second player")
	}
}

// exit detaches remaining clients, unregisters the loop and clears the
// lobby record.
func (l *matchLoop) exit() {
	for _, c := range l.match.Clients() {
		c.detach()
	}
	l.hub.remove(l)
	close(l.done)

	if l.hub.lobby != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.hub.lobby.DeleteMatch(ctx, l.match.ID); err != nil {
			l.log.Warn().Err(err).Msg("failed to delete lobby record")
		}
	}
	l.log.Info().Msg("match closed")
}
