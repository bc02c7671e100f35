package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-rooms/pkg/roomdto"
)

func main() {
	baseURL := strings.TrimRight(os.Getenv("ROOMD_URL"), "/")
	token := os.Getenv("ROOM_TOKEN")
	roomID := os.Getenv("ROOM_ID")
	gameType := os.Getenv("ROOM_GAME")
	restoreID := os.Getenv("ROOM_RESTORE_ID")

	if baseURL == "" {
		log.Fatal("ROOMD_URL is required")
	}
	if token == "" {
		log.Fatal("ROOM_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := checkHealth(ctx, baseURL); err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz ok")
	}
	if rooms, err := suspended(ctx, baseURL, token); err != nil {
		log.Printf("/suspended error: %v", err)
	} else {
		log.Printf("/suspended ok: %v", rooms)
	}
	if games, err := history(ctx, baseURL, token); err != nil {
		log.Printf("/history error: %v", err)
	} else {
		for _, g := range games {
			fmt.Printf("history room=%s game=%s winner=%q reason=%s moves=%d\n",
				g.RoomID, g.GameType, g.WinnerIdentity, g.Reason, g.MoveCount)
		}
	}

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	c, _, err := websocket.Dial(cctx, wsURL, nil)
	if err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	defer func() { _ = c.Close(websocket.StatusNormalClosure, "check done") }()

	join := roomdto.JoinRequest{Token: token, RoomID: roomID, GameType: gameType, RestoreID: restoreID}
	if err := wsjson.Write(cctx, c, join); err != nil {
		log.Printf("WS join error: %v", err)
		return
	}

	// Observe for a short window
	octx, ocancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ocancel()
	for {
		var env roomdto.Envelope
		if err := wsjson.Read(octx, c, &env); err != nil {
			log.Printf("WS read ended: %v", err)
			return
		}
		printFrame(env)
	}
}

func printFrame(env roomdto.Envelope) {
	switch env.Type {
	case roomdto.TypeState:
		var v roomdto.StateView
		if err := json.Unmarshal(env.Payload, &v); err == nil {
			fmt.Printf("state v=%d phase=%s turn=%s moves=%d countdown=%d\n",
				v.Version, v.Phase, v.CurrentTurnIdentity, v.MoveCount, v.Countdown)
			return
		}
	case roomdto.TypeError:
		var e roomdto.ErrorMessage
		if err := json.Unmarshal(env.Payload, &e); err == nil {
			fmt.Printf("error code=%s msg=%q\n", e.Code, e.Message)
			return
		}
	}
	fmt.Printf("%s %s\n", env.Type, string(env.Payload))
}

func checkHealth(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func suspended(ctx context.Context, baseURL, token string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/suspended", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Rooms []string `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Rooms, nil
}

func history(ctx context.Context, baseURL, token string) ([]roomdto.GameSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/history?limit=5", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Games []roomdto.GameSummary `json:"games"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Games, nil
}
