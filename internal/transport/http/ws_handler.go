package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/sidestacker-server/internal/auth"
	"github.com/vovakirdan/sidestacker-server/internal/config"
	"github.com/vovakirdan/sidestacker-server/internal/core"
	"github.com/vovakirdan/sidestacker-server/internal/proto"
	"github.com/vovakirdan/sidestacker-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to a match.
type WSHandler struct {
	hub  *core.Hub
	auth *auth.Service
	cfg  *config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, auth: authService, cfg: cfg, log: logger}
}

type identity struct {
	userID int64
	name   string
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()
	matchID := strings.TrimSpace(q.Get("match"))
	if matchID == "" {
		stdhttp.Error(w, "match is required", stdhttp.StatusBadRequest)
		return
	}
	encoding := q.Get("encoding")
	if encoding == "" {
		encoding = h.cfg.DefaultEncoding
	}
	if !config.ValidEncoding(encoding) {
		stdhttp.Error(w, "unknown encoding", stdhttp.StatusBadRequest)
		return
	}

	who, err := h.identify(r)
	if err != nil {
		h.log.Debug().Err(err).Str("match_id", matchID).Msg("ws auth failed")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	client := core.NewClient(utils.NewID(), who.name, matchID, who.userID)
	log := h.log.With().Str("match_id", matchID).Str("client_id", client.ID).Logger()
	log.Info().Str("name", who.name).Int64("player_id", who.userID).Str("encoding", encoding).Msg("ws connected")

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readDone := make(chan error, 1)
	writeDone := make(chan error, 1)
	go func() {
		readDone <- h.readLoop(ctx, conn, client, encoding, &log)
	}()
	go func() {
		writeDone <- h.writeLoop(ctx, conn, client, encoding)
	}()

	select {
	case err = <-writeDone:
		// The match is done with this client, or the write failed.
		if err == nil {
			if client.Evicted() {
				log.Warn().Msg("ws client fell behind, closing")
				conn.Close(websocket.StatusTryAgainLater, "client too slow")
			} else {
				conn.Close(websocket.StatusNormalClosure, "match closed")
			}
		}
		cancel()
		<-readDone
	case err = <-readDone:
		cancel()
		<-writeDone
	}

	if err != nil && !isExpectedClose(err) {
		log.Warn().Err(err).Msg("ws connection closed with error")
		conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	log.Info().Msg("ws disconnected")
	conn.Close(websocket.StatusNormalClosure, "closing")
}

// identify resolves the player from the token query parameter or the
// Authorization header. Without a token an anonymous identity is minted
// unless tokens are required.
func (h *WSHandler) identify(r *stdhttp.Request) (identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	if token == "" {
		if h.cfg.JWTRequired {
			return identity{}, errors.New("token required")
		}
		return identity{name: "anon-" + utils.ShortID(utils.NewID())}, nil
	}
	if h.auth == nil {
		return identity{}, errors.New("token auth not configured")
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		return identity{}, err
	}
	return identity{userID: claims.UserID, name: claims.Username}, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, encoding string, log *zerolog.Logger) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, protoError(core.ErrCodeRateLimited, "too many messages")); err != nil {
				return err
			}
			continue
		}
		if typ != websocket.MessageText {
			if err := wsjson.Write(ctx, conn, protoError(core.ErrCodeInvalidMessage, "text frames only")); err != nil {
				return err
			}
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			log.Debug().Err(err).Msg("malformed ws inbound")
			if err := wsjson.Write(ctx, conn, protoError(core.ErrCodeInvalidMessage, "malformed message")); err != nil {
				return err
			}
			continue
		}

		reply, cmd := h.dispatch(client, inbound, encoding)
		if reply != nil {
			if err := wsjson.Write(ctx, conn, reply); err != nil {
				return err
			}
		}
		if cmd == nil {
			continue
		}
		select {
		case client.Commands <- cmd:
		case <-client.Detached():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch handles one inbound message, returning a direct reply, a
// command for the match, or neither.
func (h *WSHandler) dispatch(client *core.Client, inbound proto.Inbound, encoding string) (*proto.Outbound, *core.Command) {
	switch inbound.Type {
	case proto.InboundTypeMove:
		cmd, perr := moveToCommand(inbound)
		if perr != nil {
			return &proto.Outbound{Type: proto.OutboundTypeError, Error: perr}, nil
		}
		return nil, cmd
	case proto.InboundTypePing:
		out := eventOutbound(proto.EventPong, proto.Empty{})
		return &out, nil
	case proto.InboundTypeHello:
		var hello proto.HelloData
		if len(inbound.Data) > 0 {
			if err := json.Unmarshal(inbound.Data, &hello); err != nil {
				out := protoError(core.ErrCodeInvalidMessage, "malformed hello payload")
				return &out, nil
			}
		}
		if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
			out := protoError(core.ErrCodeUnsupportedVersion, "unsupported protocol version")
			return &out, nil
		}
		out := eventOutbound(proto.EventHello, proto.HelloEvent{
			Protocol: proto.ProtocolVersion,
			Match:    client.MatchID,
			Encoding: encoding,
		})
		return &out, nil
	default:
		out := protoError(core.ErrCodeInvalidMessage, "unknown message type")
		return &out, nil
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, encoding string) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			for _, out := range outboundsFromEvent(event, encoding) {
				if err := wsjson.Write(ctx, conn, out); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isExpectedClose(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
