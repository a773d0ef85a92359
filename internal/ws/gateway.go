package ws

import (
	"context"
	"encoding/json"
	"sync"

	"duet_backend/internal/domain"
	"duet_backend/internal/logger"
	"duet_backend/internal/realtime"

	"github.com/gorilla/websocket"
)

// frame is the inbound client message envelope. Fields beyond Type are
// populated per operation.
type frame struct {
	Type string `json:"type"`

	Code            string             `json:"code,omitempty"`
	TargetID        int64              `json:"target_id,omitempty"`
	CompanionID     int64              `json:"companion_id,omitempty"`
	MatchID         string             `json:"match_id,omitempty"`
	Text            string             `json:"text,omitempty"`
	Role            string             `json:"role,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	Position        int                `json:"position,omitempty"`
	NextTurnSeconds int                `json:"next_turn_seconds,omitempty"`
	Rules           *domain.MatchRules `json:"rules,omitempty"`
}

// Gateway owns one websocket session per player and routes inbound frames to
// the realtime managers. It also keeps the proposed match payloads around
// between the ready handshake and the join, since the orchestrator takes the
// full match definition.
type Gateway struct {
	presence     *realtime.PresenceManager
	lobby        *realtime.LobbyManager
	matchmaking  *realtime.MatchmakingManager
	orchestrator *realtime.MatchOrchestrator
	players      realtime.PlayerDirectory

	mu       sync.Mutex
	proposed map[string]*domain.Match
}

func NewGateway(
	presence *realtime.PresenceManager,
	lobby *realtime.LobbyManager,
	matchmaking *realtime.MatchmakingManager,
	orchestrator *realtime.MatchOrchestrator,
	players realtime.PlayerDirectory,
) *Gateway {
	return &Gateway{
		presence:     presence,
		lobby:        lobby,
		matchmaking:  matchmaking,
		orchestrator: orchestrator,
		players:      players,
		proposed:     make(map[string]*domain.Match),
	}
}

// Serve registers the player with every manager, pumps frames until the
// socket dies, then unwinds the registrations in reverse dependency order.
func (g *Gateway) Serve(ctx context.Context, player domain.PlayerRef, conn *websocket.Conn) {
	client := NewClient(player.ID, conn)

	if st := g.presence.Connect(ctx, player, client); !st.OK() {
		go client.writePump()
		_ = client.Deliver(errorEvent("connect", st))
		client.Abort()
		return
	}
	g.lobby.Connect(player.ID, client)
	g.matchmaking.Connect(player.ID, client)
	g.orchestrator.Connect(player.ID, client)

	logger.Info("ws: session open", "player", player.ID, "username", player.Username)

	client.Run(func(msg []byte) {
		g.dispatch(ctx, player, client, msg)
	})

	g.orchestrator.Disconnect(player.ID)
	g.matchmaking.Disconnect(player.ID)
	g.lobby.Disconnect(player.ID)
	_ = g.presence.Disconnect(ctx, player.ID)
	g.forgetProposalsOf(player.ID)

	logger.Info("ws: session closed", "player", player.ID)
}

func (g *Gateway) dispatch(ctx context.Context, player domain.PlayerRef, client *Client, msg []byte) {
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		_ = client.Deliver(errorEvent("parse", domain.StatusWrongData))
		return
	}

	switch f.Type {
	case "create_party":
		ref := player
		code, st := g.lobby.CreateParty(&ref)
		if !st.OK() {
			_ = client.Deliver(errorEvent(f.Type, st))
			return
		}
		_ = client.Deliver(realtime.Event{
			Type:    realtime.EvAck,
			Payload: map[string]string{"op": f.Type, "code": code},
		})

	case "invite_party":
		g.reply(client, f.Type, g.lobby.InviteToParty(ctx, player, f.TargetID, f.Code))

	case "join_party":
		g.reply(client, f.Type, g.lobby.JoinParty(player, f.Code))

	case "leave_party":
		g.reply(client, f.Type, g.lobby.LeaveParty(player.ID, f.Code))

	case "request_match":
		g.reply(client, f.Type, g.requestMatch(ctx, player, f))

	case "confirm_match":
		g.reply(client, f.Type, g.matchmaking.ConfirmMatchReceived(player.ID, f.MatchID))

	case "cancel_match":
		st := g.matchmaking.RequestMatchCancel(player.ID, f.Reason)
		if st.OK() {
			g.forgetProposalsOf(player.ID)
		}
		g.reply(client, f.Type, st)

	case "join_match":
		match := g.proposal(f.MatchID)
		if match == nil {
			g.reply(client, f.Type, domain.StatusNotFound)
			return
		}
		g.reply(client, f.Type, g.orchestrator.JoinMatch(match, player.ID))

	case "clue":
		g.reply(client, f.Type, g.orchestrator.SendClue(player.ID, f.Text))

	case "turn_timeout":
		g.reply(client, f.Type, g.orchestrator.NotifyTurnTimeout(player.ID, realtime.Role(f.Role)))

	case "pick_agent":
		g.reply(client, f.Type, g.orchestrator.NotifyPickedAgent(g.pick(player.ID, f)))

	case "pick_bystander":
		g.reply(client, f.Type, g.orchestrator.NotifyPickedBystander(g.pick(player.ID, f)))

	case "pick_assassin":
		g.reply(client, f.Type, g.orchestrator.NotifyPickedAssassin(g.pick(player.ID, f)))

	default:
		_ = client.Deliver(errorEvent(f.Type, domain.StatusWrongData))
	}
}

func (g *Gateway) requestMatch(ctx context.Context, requester domain.PlayerRef, f frame) domain.Status {
	if f.CompanionID == 0 || f.CompanionID == requester.ID {
		return domain.StatusMissingData
	}
	companion, err := g.players.GetByID(ctx, f.CompanionID)
	if err != nil {
		return domain.StatusNotFound
	}

	rules := domain.MatchRules{Gamemode: domain.GamemodeNormal}
	if f.Rules != nil {
		rules = *f.Rules
	}
	if !rules.Gamemode.Valid() {
		return domain.StatusWrongData
	}

	cfg := &domain.MatchConfiguration{
		Requester: requester,
		Companion: companion.Ref(),
		Rules:     rules,
	}
	match, st := g.matchmaking.RequestArrangedMatch(cfg)
	if st.OK() {
		g.mu.Lock()
		g.proposed[match.ID] = match
		g.mu.Unlock()
	}
	return st
}

func (g *Gateway) pick(playerID int64, f frame) realtime.PickNotification {
	return realtime.PickNotification{
		PlayerID:        playerID,
		Position:        f.Position,
		NextTurnSeconds: f.NextTurnSeconds,
	}
}

func (g *Gateway) reply(client *Client, op string, st domain.Status) {
	if !st.OK() {
		_ = client.Deliver(errorEvent(op, st))
		return
	}
	_ = client.Deliver(realtime.Event{
		Type:    realtime.EvAck,
		Payload: map[string]string{"op": op},
	})
}

func (g *Gateway) proposal(matchID string) *domain.Match {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.proposed[matchID]
}

// forgetProposalsOf drops stored match payloads the player participates in.
// Stale entries otherwise outlive canceled handshakes.
func (g *Gateway) forgetProposalsOf(playerID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, match := range g.proposed {
		if match.Requester.ID == playerID || match.Companion.ID == playerID {
			delete(g.proposed, id)
		}
	}
}

func errorEvent(op string, st domain.Status) realtime.Event {
	return realtime.Event{
		Type:    realtime.EvError,
		Payload: map[string]string{"op": op, "status": string(st)},
	}
}
