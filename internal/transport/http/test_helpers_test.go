package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/sidestacker-server/internal/auth"
	"github.com/vovakirdan/sidestacker-server/internal/config"
	"github.com/vovakirdan/sidestacker-server/internal/core"
	"github.com/vovakirdan/sidestacker-server/internal/proto"
	"github.com/vovakirdan/sidestacker-server/internal/store"
	"github.com/vovakirdan/sidestacker-server/internal/store/sqlite"
)

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	store store.Store
	auth  *auth.Service
	cfg   *config.Config
}

// startTestServer runs the full router on an in-memory store with a 4x4
// board and a short end grace period.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.BoardRows, cfg.BoardCols = 4, 4
	cfg.EndGracePeriod = 20 * time.Millisecond
	cfg.JWTSecret = "testsecret"
	cfg.JWTIssuer, cfg.JWTAudience = "test", "test"
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})

	logger := zerolog.Nop()
	hub := core.NewHub(st, core.HubConfig{
		Rows:     cfg.BoardRows,
		Cols:     cfg.BoardCols,
		EndGrace: cfg.EndGracePeriod,
	}, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Close()
	})

	server := NewServer(hub, authService, st, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: hub, store: st, auth: authService, cfg: &cfg}
}

func (e *testEnv) wsURL(query string) string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws?" + query
}

// postJSON sends body and decodes the response into out when out is not nil.
func (e *testEnv) postJSON(t *testing.T, path, token string, body, out any) int {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) getJSON(t *testing.T, path string, out any) int {
	t.Helper()

	resp, err := e.ts.Client().Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) guestToken(t *testing.T) string {
	t.Helper()
	var resp AuthResponse
	if status := e.postJSON(t, "/api/guest", "", struct{}{}, &resp); status != http.StatusOK {
		t.Fatalf("guest login status %d", status)
	}
	return resp.Token
}

// player is one websocket connection with the view derived from what it
// has read so far.
type player struct {
	t    *testing.T
	conn *websocket.Conn
	view *proto.View
	// pending holds messages read during the hello round trip that the
	// test has not consumed yet.
	pending []proto.Received
}

func dialPlayer(ctx context.Context, t *testing.T, url string) *player {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	p := &player{t: t, conn: conn, view: proto.NewView()}
	// A hello round trip guarantees the player is seated before returning.
	// Match events may arrive on either side of the reply.
	p.send(ctx, proto.InboundTypeHello, proto.HelloData{Protocol: proto.ProtocolVersion})
	for {
		msg := p.readRaw(ctx)
		if msg.Type == proto.OutboundTypeEvent && msg.Event == proto.EventHello {
			return p
		}
		p.pending = append(p.pending, msg)
	}
}

func (p *player) readRaw(ctx context.Context) proto.Received {
	p.t.Helper()
	var msg proto.Received
	if err := wsjson.Read(ctx, p.conn, &msg); err != nil {
		p.t.Fatalf("read: %v", err)
	}
	return msg
}

func (p *player) send(ctx context.Context, typ string, data any) {
	p.t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		p.t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, p.conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		p.t.Fatalf("send %s: %v", typ, err)
	}
}

func (p *player) move(ctx context.Context, row int, side string) {
	p.t.Helper()
	p.send(ctx, proto.InboundTypeMove, proto.MoveData{Row: row, Side: side})
}

// readUntil applies every message to the view and returns the first one
// matching stop.
func (p *player) readUntil(ctx context.Context, stop func(proto.Received) bool) proto.Received {
	p.t.Helper()
	for {
		var msg proto.Received
		if len(p.pending) > 0 {
			msg, p.pending = p.pending[0], p.pending[1:]
		} else {
			msg = p.readRaw(ctx)
		}
		if err := p.view.Apply(msg); err != nil {
			p.t.Fatalf("apply %s: %v", msg.Event, err)
		}
		if stop(msg) {
			return msg
		}
	}
}

func (p *player) readEvent(ctx context.Context, names ...string) proto.Received {
	p.t.Helper()
	return p.readUntil(ctx, func(msg proto.Received) bool {
		for _, name := range names {
			if msg.Type == proto.OutboundTypeEvent && msg.Event == name {
				return true
			}
		}
		return false
	})
}

func (p *player) readError(ctx context.Context) *proto.Error {
	p.t.Helper()
	msg := p.readUntil(ctx, func(msg proto.Received) bool { return msg.Type == proto.OutboundTypeError })
	return msg.Error
}

// expectClosed reads until the server closes the connection normally.
func (p *player) expectClosed(ctx context.Context) {
	p.t.Helper()
	p.pending = nil
	for {
		var msg proto.Received
		err := wsjson.Read(ctx, p.conn, &msg)
		if err == nil {
			continue
		}
		if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure {
			p.t.Fatalf("expected normal closure, got %v (status %d)", err, status)
		}
		return
	}
}
