package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/sidestacker-server/internal/config"
	"github.com/vovakirdan/sidestacker-server/internal/core"
	"github.com/vovakirdan/sidestacker-server/internal/store"
	"github.com/vovakirdan/sidestacker-server/internal/utils"
)

// MatchHandlers provides the lobby endpoints.
type MatchHandlers struct {
	matches store.MatchStore
	hub     *core.Hub
	cfg     *config.Config
	log     *zerolog.Logger
}

// NewMatchHandlers creates a new match handlers instance.
func NewMatchHandlers(matches store.MatchStore, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *MatchHandlers {
	return &MatchHandlers{
		matches: matches,
		hub:     hub,
		cfg:     cfg,
		log:     logger,
	}
}

// CreateMatchRequest represents the create match request body.
type CreateMatchRequest struct {
	Opponent string `json:"opponent" binding:"required,oneof=friend bot"`
	Encoding string `json:"encoding" binding:"omitempty,oneof=events update"`
}

// MatchResponse represents a match in API responses.
type MatchResponse struct {
	ID        string     `json:"id"`
	Opponent  string     `json:"opponent"`
	Status    string     `json:"status"`
	Player1ID *int64     `json:"player1_id,omitempty"`
	Player2ID *int64     `json:"player2_id,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	WSURL     string     `json:"ws_url,omitempty"`
	Live      *LiveMatch `json:"live,omitempty"`
}

// LiveMatch is the state of a running match.
type LiveMatch struct {
	Status  string `json:"status"`
	Turn    int    `json:"turn"`
	Players int    `json:"players"`
	Moves   int    `json:"moves"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Outcome string `json:"outcome,omitempty"`
	Winner  *int   `json:"winner,omitempty"`
}

// CreateMatch opens a lobby record owned by the caller.
// POST /api/matches
func (h *MatchHandlers) CreateMatch(c *gin.Context) {
	uid := c.GetInt64(ContextKeyUserID)
	if uid == 0 {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create match request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = h.cfg.DefaultEncoding
	}

	m := &store.Match{ID: utils.NewID(), Opponent: req.Opponent, Player1ID: &uid}
	if err := h.matches.CreateMatch(c.Request.Context(), m); err != nil {
		h.log.Error().Err(err).Int64("player_id", uid).Msg("failed to create match")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("match_id", m.ID).Str("opponent", m.Opponent).Int64("player_id", uid).Msg("match opened")
	resp := recordResponse(m)
	resp.Status = string(core.StatusWaiting)
	resp.WSURL = wsURL(c.Request, m.ID, encoding)
	c.JSON(http.StatusCreated, resp)
}

// GetMatch returns the lobby record and, when running, the live state.
// GET /api/matches/:id
func (h *MatchHandlers) GetMatch(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.matches.GetMatch(c.Request.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error().Err(err).Str("match_id", id).Msg("failed to load match")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	snap, live := h.hub.Snapshot(c.Request.Context(), id)
	if rec == nil && !live {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "match not found"})
		return
	}

	resp := MatchResponse{ID: id, Status: string(core.StatusWaiting)}
	if rec != nil {
		resp = recordResponse(rec)
		resp.Status = string(core.StatusWaiting)
	}
	if live {
		resp.Status = string(snap.Status)
		if resp.Opponent == "" {
			resp.Opponent = string(snap.Opponent)
		}
		resp.Live = liveResponse(snap)
	}
	c.JSON(http.StatusOK, resp)
}

func recordResponse(m *store.Match) MatchResponse {
	resp := MatchResponse{
		ID:        m.ID,
		Opponent:  m.Opponent,
		Player1ID: m.Player1ID,
		Player2ID: m.Player2ID,
	}
	if !m.CreatedAt.IsZero() {
		resp.CreatedAt = m.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func liveResponse(s core.MatchSnapshot) *LiveMatch {
	return &LiveMatch{
		Status:  string(s.Status),
		Turn:    int(s.Turn),
		Players: s.Players,
		Moves:   s.Moves,
		Rows:    s.Rows,
		Cols:    s.Cols,
		Outcome: string(s.Outcome),
		Winner:  winnerValue(s.Winner),
	}
}

func wsURL(r *http.Request, matchID, encoding string) string {
	scheme := "ws"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "wss"
	}
	q := url.Values{}
	q.Set("match", matchID)
	q.Set("encoding", encoding)
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/ws", RawQuery: q.Encode()}
	return u.String()
}
