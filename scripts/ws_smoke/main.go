package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/sidestacker-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	encoding := flag.String("encoding", "events", "wire encoding (events, update)")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var auth struct {
		Token string `json:"token"`
	}
	if err := postJSON(ctx, *base+"/api/guest", "", nil, &auth); err != nil {
		return fmt.Errorf("guest login: %w", err)
	}

	var match struct {
		ID    string `json:"id"`
		WSURL string `json:"ws_url"`
	}
	req := map[string]string{"opponent": "bot", "encoding": *encoding}
	if err := postJSON(ctx, *base+"/api/matches", auth.Token, req, &match); err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	fmt.Printf("Created bot match %s\n", match.ID)

	wsURL, err := url.Parse(match.WSURL)
	if err != nil {
		return fmt.Errorf("parse ws url: %w", err)
	}
	q := wsURL.Query()
	q.Set("token", auth.Token)
	wsURL.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	view := proto.NewView()
	for {
		var msg proto.Received
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && view.Ended {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := view.Apply(msg); err != nil {
			return fmt.Errorf("apply %s: %w", msg.Event, err)
		}
		if msg.Error != nil {
			return fmt.Errorf("server error: %w", msg.Error)
		}

		switch {
		case view.Ended:
			fmt.Printf("Match ended: reason=%s winner=%s\n", view.Reason, winnerString(view.Winner))
			return nil
		case view.Finished:
			// Wait for end.
		case (msg.Event == proto.EventTurn || msg.Event == proto.EventUpdate) && view.CanMove(1):
			row, side := pickMove(view)
			data, err := json.Marshal(proto.MoveData{Row: row, Side: side})
			if err != nil {
				return fmt.Errorf("marshal move: %w", err)
			}
			fmt.Printf("Move: row=%d side=%s\n", row, side)
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMove, Data: data}); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

func pickMove(view *proto.View) (int, string) {
	rows := view.Rows()
	row := rows[rand.IntN(len(rows))]
	side := "left"
	if len(view.AvailableMoves[row]) > 1 && rand.IntN(2) == 1 {
		side = "right"
	}
	return row, side
}

func winnerString(w *int) string {
	if w == nil {
		return "none"
	}
	return fmt.Sprintf("player %d", *w)
}

func postJSON(ctx context.Context, target, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
