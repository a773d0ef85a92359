package integration

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"duet_backend/internal/board"
	"duet_backend/internal/config"
	"duet_backend/internal/domain"
	httpserver "duet_backend/internal/http"
	"duet_backend/internal/http/handlers"
	"duet_backend/internal/mail"
	"duet_backend/internal/realtime"
	"duet_backend/internal/repository"
	"duet_backend/internal/service"
	"duet_backend/internal/ws"
)

func applyMigrations(t *testing.T, dbp *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := dbp.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func ensurePlayer(t *testing.T, pr *repository.PlayerRepository, username string) *domain.Player {
	t.Helper()
	p, err := pr.GetByUsername(context.Background(), username)
	if err == nil {
		return p
	}
	p = &domain.Player{Username: username, PasswordHash: "x"}
	if err := pr.Create(context.Background(), p); err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return p
}

func TestE2E_WS_ArrangedMatch(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	dbp, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer dbp.Close()

	applyMigrations(t, dbp)

	pr := repository.NewPlayerRepository(dbp)
	pA := ensurePlayer(t, pr, "e2e_requester")
	pB := ensurePlayer(t, pr, "e2e_companion")

	service.InitJWT("test-secret")
	tokenA, err := service.GenerateJWT(pA.ID)
	if err != nil {
		t.Fatalf("gen token A: %v", err)
	}
	tokenB, err := service.GenerateJWT(pB.ID)
	if err != nil {
		t.Fatalf("gen token B: %v", err)
	}

	// wire the server the way cmd/app does
	friendRepo := repository.NewFriendRepository(dbp)
	scoreRepo := repository.NewScoreboardRepository(dbp)
	reportRepo := repository.NewReportRepository(dbp)

	presence := realtime.NewPresenceManager(friendRepo)
	lobby := realtime.NewLobbyManager(pr, mail.NewSMTPMailer("", ""), 1)
	matchmaking := realtime.NewMatchmakingManager(board.NewGenerator(1))
	orchestrator := realtime.NewMatchOrchestrator(scoreRepo)
	gateway := ws.NewGateway(presence, lobby, matchmaking, orchestrator, pr)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{
		DB:      dbp,
		Config:  &config.Config{APIRateLimit: 100, APIRateWindow: 60, AuthRateLimit: 100, AuthRateWindow: 60},
		Handler: handlers.NewHandler(pr, friendRepo, scoreRepo, reportRepo, presence),
		Gateway: gateway,
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	dial := func(token string) *websocket.Conn {
		url := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		return conn
	}

	connA := dial(tokenA)
	defer connA.Close()
	connB := dial(tokenB)
	defer connB.Close()

	startReader := func(conn *websocket.Conn) chan map[string]any {
		out := make(chan map[string]any, 32)
		go func() {
			defer close(out)
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var obj map[string]any
				if json.Unmarshal(msg, &obj) == nil {
					out <- obj
				}
			}
		}()
		return out
	}

	chA := startReader(connA)
	chB := startReader(connB)

	waitFor := func(ch chan map[string]any, evType string) map[string]any {
		deadline := time.After(3 * time.Second)
		for {
			select {
			case obj, ok := <-ch:
				if !ok {
					t.Fatalf("connection closed waiting for %s", evType)
				}
				if obj["type"] == evType {
					return obj
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %s", evType)
			}
		}
	}

	send := func(conn *websocket.Conn, frame string) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// the friends snapshot is the first event of a session; both sides being
	// past it means every manager registration is done
	waitFor(chA, "friends_online")
	waitFor(chB, "friends_online")

	send(connA, `{"type":"request_match","companion_id":`+jsonInt(pB.ID)+`}`)

	proposed := waitFor(chA, "match_proposed")
	waitFor(chB, "match_proposed")

	payload, _ := proposed["payload"].(map[string]any)
	matchID, _ := payload["id"].(string)
	if matchID == "" {
		t.Fatal("proposal carried no match id")
	}
	words, _ := payload["words"].([]any)
	if len(words) != 25 {
		t.Fatalf("expected 25 words in proposal, got %d", len(words))
	}

	send(connA, `{"type":"confirm_match","match_id":"`+matchID+`"}`)
	send(connB, `{"type":"confirm_match","match_id":"`+matchID+`"}`)

	waitFor(chA, "players_ready")
	waitFor(chB, "players_ready")

	send(connA, `{"type":"join_match","match_id":"`+matchID+`"}`)
	send(connB, `{"type":"join_match","match_id":"`+matchID+`"}`)

	// requester is the first spymaster; the clue must reach the companion
	send(connA, `{"type":"clue","text":"OCEAN 2"}`)

	clue := waitFor(chB, "clue")
	cluePayload, _ := clue["payload"].(map[string]any)
	if cluePayload["text"] != "OCEAN 2" {
		t.Fatalf("clue payload = %v, want OCEAN 2", cluePayload)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
