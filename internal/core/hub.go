package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/sidestacker-server/internal/game"
	"github.com/vovakirdan/sidestacker-server/internal/store"
)

// Lobby is the persisted match directory. The hub reads the opponent kind
// from it when a match is first joined and clears the record once the
// match is gone.
type Lobby interface {
	GetMatch(ctx context.Context, id string) (*store.Match, error)
	JoinMatch(ctx context.Context, id string, playerID int64) error
	DeleteMatch(ctx context.Context, id string) error
}

// HubConfig holds per-match settings.
type HubConfig struct {
	Rows int
	Cols int
	// EndGrace is how long after finishing a match the end signal is sent.
	EndGrace time.Duration
	// NewBot builds the bot for each bot match. Defaults to NewRandomBot.
	NewBot func() *Bot
}

// MatchSnapshot is a read-only view of a live match.
type MatchSnapshot struct {
	ID       string
	Status   Status
	Opponent Opponent
	Turn     game.Piece
	Players  int
	Moves    int
	Rows     int
	Cols     int
	Outcome  Outcome
	Winner   game.Piece
}

// Hub routes clients to their match. Each match runs in its own goroutine;
// the hub only tracks which matches are alive.
type Hub struct {
	cfg     HubConfig
	lobby   Lobby
	log     *zerolog.Logger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	matches map[string]*matchLoop
	closed  bool
}

var errHubClosed = errors.New("hub closed")

// NewHub creates a hub. lobby and logger may be nil.
func NewHub(lobby Lobby, cfg HubConfig, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.NewBot == nil {
		cfg.NewBot = NewRandomBot
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:     cfg,
		lobby:   lobby,
		log:     logger,
		metrics: &Metrics{},
		ctx:     ctx,
		cancel:  cancel,
		matches: make(map[string]*matchLoop),
	}
}

// Run blocks until ctx is cancelled, then stops every match.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

// Close stops all matches and waits for their goroutines to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
}

// Metrics returns the hub counters.
func (h *Hub) Metrics() *Metrics {
	return h.metrics
}

// RegisterClient seats c in the match named by c.MatchID, creating the
// match if it is not running yet. Rejections arrive on c.Events as an
// error followed by the channel closing.
func (h *Hub) RegisterClient(c *Client) {
	for {
		l, err := h.loopFor(c.MatchID)
		if err != nil {
			// Nothing else delivers to c yet.
			c.Events <- &Event{Kind: EventError, Match: c.MatchID, Error: coreError(ErrCodeShuttingDown, "server is shutting down")}
			c.detach()
			return
		}
		if l.post(inboxItem{kind: inboxJoin, client: c}) {
			go l.pump(c)
			return
		}
		// The loop exited between lookup and post; start over.
	}
}

// UnregisterClient removes c from its match.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	l := h.matches[c.MatchID]
	h.mu.Unlock()

	if l == nil {
		return
	}
	l.post(inboxItem{kind: inboxLeave, client: c})
}

// Snapshot returns the live state of match id.
func (h *Hub) Snapshot(ctx context.Context, id string) (MatchSnapshot, bool) {
	h.mu.Lock()
	l := h.matches[id]
	h.mu.Unlock()

	if l == nil {
		return MatchSnapshot{}, false
	}
	reply := make(chan MatchSnapshot, 1)
	if !l.post(inboxItem{kind: inboxSnapshot, reply: reply}) {
		return MatchSnapshot{}, false
	}
	select {
	case snap := <-reply:
		return snap, true
	case <-ctx.Done():
		return MatchSnapshot{}, false
	}
}

func (h *Hub) loopFor(id string) (*matchLoop, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errHubClosed
	}
	if l, ok := h.matches[id]; ok {
		h.mu.Unlock()
		return l, nil
	}
	h.mu.Unlock()

	opponent := h.lookupOpponent(id)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errHubClosed
	}
	if l, ok := h.matches[id]; ok {
		return l, nil
	}

	opts := MatchOptions{Rows: h.cfg.Rows, Cols: h.cfg.Cols, Opponent: opponent}
	if opponent == OpponentBot {
		opts.Bot = h.cfg.NewBot()
	}
	l := newMatchLoop(h, NewMatch(id, opts))
	h.matches[id] = l
	h.metrics.MatchesCreated.Add(1)
	h.metrics.MatchesActive.Add(1)

	h.wg.Add(1)
	go l.run(h.ctx)

	l.log.Info().Str("opponent", string(opponent)).Msg("match created")
	return l, nil
}

func (h *Hub) lookupOpponent(id string) Opponent {
	if h.lobby == nil {
		return OpponentFriend
	}
	ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
	defer cancel()

	rec, err := h.lobby.GetMatch(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn().Err(err).Str("match_id", id).Msg("lobby lookup failed")
		}
		return OpponentFriend
	}
	return ParseOpponent(rec.Opponent)
}

// remove drops l from the registry if it is still the registered loop.
func (h *Hub) remove(l *matchLoop) {
	h.mu.Lock()
	if h.matches[l.match.ID] == l {
		delete(h.matches, l.match.ID)
		h.metrics.MatchesActive.Add(-1)
	}
	h.mu.Unlock()
}
