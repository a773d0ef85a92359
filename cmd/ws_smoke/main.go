package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"duet_backend/internal/db"
	"duet_backend/internal/domain"
	"duet_backend/internal/repository"
	"duet_backend/internal/service"
)

// Drives the full arranged-match handshake against a running server:
// propose, confirm on both sides, join, one clue across.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	pr := repository.NewPlayerRepository(pool)
	ctx := context.Background()

	ensurePlayer := func(username string) *domain.Player {
		p, err := pr.GetByUsername(ctx, username)
		if err == nil {
			return p
		}
		p = &domain.Player{Username: username, PasswordHash: "smoke"}
		if err := pr.Create(ctx, p); err != nil {
			log.Fatalf("create %s: %v", username, err)
		}
		return p
	}

	pA := ensurePlayer("smokeA")
	pB := ensurePlayer("smokeB")

	service.InitJWT(jwtSecret)
	tokenA, err := service.GenerateJWT(pA.ID)
	if err != nil {
		log.Fatalf("gen token A: %v", err)
	}
	tokenB, err := service.GenerateJWT(pB.ID)
	if err != nil {
		log.Fatalf("gen token B: %v", err)
	}

	dialer := websocket.DefaultDialer

	// 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	connA, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, tokenA), nil)
	if err != nil {
		log.Fatalf("dial A: %v", err)
	}
	defer connA.Close()

	connB, _, err := dialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, tokenB), nil)
	if err != nil {
		log.Fatalf("dial B: %v", err)
	}
	defer connB.Close()

	send := func(conn *websocket.Conn, name, frame string) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			log.Fatalf("%s write: %v", name, err)
		}
	}

	waitMatching := func(conn *websocket.Conn, name, want string, match func(map[string]any) bool) map[string]any {
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				continue
			}
			var obj map[string]any
			_ = json.Unmarshal(msg, &obj)
			if match(obj) {
				log.Printf("%s got %s: %s", name, want, string(msg))
				return obj
			}
		}
		log.Fatalf("%s: timeout waiting for %s", name, want)
		return nil
	}

	waitFor := func(conn *websocket.Conn, name, evType string) map[string]any {
		return waitMatching(conn, name, evType, func(obj map[string]any) bool {
			return obj["type"] == evType
		})
	}

	waitForAck := func(conn *websocket.Conn, name, op string) {
		waitMatching(conn, name, "ack:"+op, func(obj map[string]any) bool {
			if obj["type"] != "ack" {
				return false
			}
			payload, _ := obj["payload"].(map[string]any)
			return payload["op"] == op
		})
	}

	// wait for the session handshake so both registrations are complete
	waitFor(connA, "A", "friends_online")
	waitFor(connB, "B", "friends_online")

	send(connA, "A", fmt.Sprintf(`{"type":"request_match","companion_id":%d}`, pB.ID))

	proposedA := waitFor(connA, "A", "match_proposed")
	waitFor(connB, "B", "match_proposed")

	matchID, _ := proposedA["payload"].(map[string]any)["id"].(string)
	if matchID == "" {
		log.Fatal("no match id in proposal")
	}

	send(connA, "A", fmt.Sprintf(`{"type":"confirm_match","match_id":%q}`, matchID))
	send(connB, "B", fmt.Sprintf(`{"type":"confirm_match","match_id":%q}`, matchID))

	waitFor(connA, "A", "players_ready")
	waitFor(connB, "B", "players_ready")

	send(connA, "A", fmt.Sprintf(`{"type":"join_match","match_id":%q}`, matchID))
	send(connB, "B", fmt.Sprintf(`{"type":"join_match","match_id":%q}`, matchID))

	waitForAck(connA, "A", "join_match")
	waitForAck(connB, "B", "join_match")

	send(connA, "A", `{"type":"clue","text":"OCEAN 2"}`)
	waitFor(connB, "B", "clue")

	log.Println("smoke run finished")
}
