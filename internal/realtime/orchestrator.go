package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"duet_backend/internal/board"
	"duet_backend/internal/domain"
	"duet_backend/internal/logger"
)

// StartingAgents is the shared agent objective: a match is won when the
// cumulative agent pick count across both boards reaches it.
const StartingAgents = 15

const scoreboardTimeout = 5 * time.Second

// Role names a slot inside an ongoing match.
type Role string

const (
	RoleSpymaster Role = "spymaster"
	RoleGuesser   Role = "guesser"
)

// PickNotification describes a cell pick reported by a client.
type PickNotification struct {
	PlayerID        int64 `json:"player_id"`
	Position        int   `json:"position"`
	NextTurnSeconds int   `json:"next_turn_seconds"`
}

// ongoingMatch is the mutable runtime state for one active match. Mutated
// only under its own mu; deliveries happen after it is released.
type ongoingMatch struct {
	mu sync.Mutex

	match domain.Match

	spymasterID     int64
	guesserID       int64
	spymasterJoined bool
	guesserJoined   bool

	remainingAgents int
	timerTokens     int
	bystanderTokens int
	startedAt       time.Time
}

// MatchOrchestrator owns every match from first join to termination. Any
// outbound delivery fault outside the clue path cascades as if the
// unreachable player had disconnected; there is no reconnect.
type MatchOrchestrator struct {
	mu          sync.Mutex
	conns       map[int64]Connection
	matches     map[string]*ongoingMatch
	playerMatch map[int64]string

	scoreboard ScoreboardStore
}

func NewMatchOrchestrator(scoreboard ScoreboardStore) *MatchOrchestrator {
	return &MatchOrchestrator{
		conns:       make(map[int64]Connection),
		matches:     make(map[string]*ongoingMatch),
		playerMatch: make(map[int64]string),
		scoreboard:  scoreboard,
	}
}

func (m *MatchOrchestrator) Connect(playerID int64, conn Connection) domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[playerID]; ok {
		return domain.StatusUnauthorized
	}
	m.conns[playerID] = conn
	return domain.StatusOK
}

// JoinMatch assigns the caller their fixed starting slot: the requester is
// always the first spymaster, the companion the first guesser. State
// creation, slot assignment, and the player→match mapping all happen under
// the collection lock as one step, so a concurrent disconnect can never land
// between them and strand the runtime state.
func (m *MatchOrchestrator) JoinMatch(match *domain.Match, playerID int64) domain.Status {
	if match == nil {
		return domain.StatusMissingData
	}
	if playerID != match.Requester.ID && playerID != match.Companion.ID {
		return domain.StatusWrongData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[playerID]; !ok {
		return domain.StatusClientDisconnect
	}
	if heldID, ok := m.playerMatch[playerID]; ok {
		if heldID == match.ID {
			return domain.StatusWrongData
		}
		return domain.StatusUnallowed
	}
	om, ok := m.matches[match.ID]
	if !ok {
		om = &ongoingMatch{
			match:           *match,
			spymasterID:     match.Requester.ID,
			guesserID:       match.Companion.ID,
			remainingAgents: StartingAgents,
			timerTokens:     match.Rules.TimerTokens,
			bystanderTokens: match.Rules.BystanderTokens,
			startedAt:       time.Now(),
		}
		m.matches[match.ID] = om
		ActiveMatches.Inc()
	}

	om.mu.Lock()
	if playerID == match.Requester.ID {
		if om.spymasterJoined {
			om.mu.Unlock()
			return domain.StatusWrongData
		}
		om.spymasterJoined = true
	} else {
		if om.guesserJoined {
			om.mu.Unlock()
			return domain.StatusWrongData
		}
		om.guesserJoined = true
	}
	om.mu.Unlock()

	m.playerMatch[playerID] = match.ID
	return domain.StatusOK
}

// SendClue routes the clue text verbatim to the current guesser. This is the
// one delivery path that does not tear the match down on fault; the
// spymaster is told the companion is unreachable and play may continue.
func (m *MatchOrchestrator) SendClue(spymasterID int64, text string) domain.Status {
	om := m.matchOf(spymasterID)
	if om == nil {
		return domain.StatusNotFound
	}

	om.mu.Lock()
	if om.spymasterID != spymasterID {
		om.mu.Unlock()
		return domain.StatusUnauthorized
	}
	guesserID := om.guesserID
	om.mu.Unlock()

	gConn := m.conn(guesserID)
	if gConn == nil {
		m.notifyCompanionLost(spymasterID)
		return domain.StatusOK
	}
	if err := gConn.Deliver(Event{Type: EvClue, Payload: map[string]string{"text": text}}); err != nil {
		logger.Warn("match: clue undeliverable", "guesser", guesserID, "error", err)
		m.notifyCompanionLost(spymasterID)
	}

	return domain.StatusOK
}

// NotifyTurnTimeout handles an expired turn timer. A spymaster timeout only
// announces the turn change; a guesser timeout costs a timer token and
// attempts a role swap.
func (m *MatchOrchestrator) NotifyTurnTimeout(senderID int64, role Role) domain.Status {
	om := m.matchOf(senderID)
	if om == nil {
		return domain.StatusNotFound
	}

	if role == RoleSpymaster {
		om.mu.Lock()
		spy, guess := om.spymasterID, om.guesserID
		om.mu.Unlock()

		ev := Event{Type: EvTurnChanged, Payload: map[string]string{"timed_out": string(role)}}
		for _, id := range []int64{spy, guess} {
			if conn := m.conn(id); conn != nil {
				if err := conn.Deliver(ev); err != nil {
					m.Disconnect(id)
				}
			}
		}
		return domain.StatusOK
	}

	om.mu.Lock()
	om.timerTokens--
	tokens := om.timerTokens
	spy := om.spymasterID
	om.mu.Unlock()

	if conn := m.conn(spy); conn != nil {
		ev := Event{Type: EvTimerTokens, Payload: map[string]int{"timer_tokens": tokens}}
		if err := conn.Deliver(ev); err != nil {
			m.Disconnect(spy)
			return domain.StatusOK
		}
	}

	m.trySwapRoles(om)
	return domain.StatusOK
}

// trySwapRoles announces a role change to both sides and applies the swap
// only when both deliveries succeed. A side that cannot be reached abandons
// the match.
func (m *MatchOrchestrator) trySwapRoles(om *ongoingMatch) {
	om.mu.Lock()
	spy, guess := om.spymasterID, om.guesserID
	om.mu.Unlock()

	ev := Event{Type: EvRolesChanged, Payload: map[string]int64{"spymaster": guess, "guesser": spy}}

	okSpy := m.deliverTo(spy, ev)
	okGuess := m.deliverTo(guess, ev)

	if okSpy && okGuess {
		om.mu.Lock()
		om.spymasterID, om.guesserID = guess, spy
		om.mu.Unlock()
		return
	}
	if !okSpy {
		m.Disconnect(spy)
	}
	if !okGuess {
		m.Disconnect(guess)
	}
}

// NotifyPickedAgent records an agent cell pick. While agents remain, only
// the spymaster hears about it (with the proposed, clamped next turn
// length); the fifteenth agent wins the match.
func (m *MatchOrchestrator) NotifyPickedAgent(n PickNotification) domain.Status {
	om := m.matchOf(n.PlayerID)
	if om == nil {
		return domain.StatusNotFound
	}

	om.mu.Lock()
	om.remainingAgents--
	remaining := om.remainingAgents
	spy, guess := om.spymasterID, om.guesserID
	started := om.startedAt
	matchID := om.match.ID
	om.mu.Unlock()

	if remaining > 0 {
		next := n.NextTurnSeconds
		if next > board.MaxTurnSeconds {
			next = board.MaxTurnSeconds
		}
		ev := Event{Type: EvAgentPick, Payload: map[string]int{
			"position":          n.Position,
			"remaining_agents":  remaining,
			"next_turn_seconds": next,
		}}
		if conn := m.conn(spy); conn != nil {
			if err := conn.Deliver(ev); err != nil {
				m.Disconnect(spy)
			}
		}
		return domain.StatusOK
	}

	// all agents found: the match is won
	elapsed := time.Since(started)
	if elapsed >= time.Hour {
		elapsed = time.Hour - time.Second
	}
	m.removeMatch(matchID, spy, guess)
	MatchOutcomes.WithLabelValues("won").Inc()

	ev := Event{Type: EvMatchWon, Payload: map[string]string{"elapsed": formatElapsed(elapsed)}}
	for _, id := range []int64{spy, guess} {
		if conn := m.conn(id); conn != nil {
			if err := conn.Deliver(ev); err != nil {
				m.dropConn(id)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), scoreboardTimeout)
	defer cancel()
	for _, id := range []int64{spy, guess} {
		if err := m.scoreboard.RecordWin(ctx, id, elapsed); err != nil {
			logger.Error("match: win record failed", "player", id, "error", err)
			if conn := m.conn(id); conn != nil {
				_ = conn.Deliver(Event{Type: EvStatsNotSaved})
			}
		}
	}

	return domain.StatusOK
}

// NotifyPickedBystander charges the pick to the gamemode's token economy,
// then either swaps roles or, once timer tokens run dry, ends the match as a
// timeout loss. Timeout losses deliberately skip the scoreboard.
func (m *MatchOrchestrator) NotifyPickedBystander(n PickNotification) domain.Status {
	om := m.matchOf(n.PlayerID)
	if om == nil {
		return domain.StatusNotFound
	}

	om.mu.Lock()
	var pool string
	var balance int
	switch {
	case om.match.Rules.Gamemode == domain.GamemodeCustom && om.bystanderTokens > 0:
		om.bystanderTokens--
		pool, balance = "bystander", om.bystanderTokens
	case om.match.Rules.Gamemode == domain.GamemodeCustom:
		om.timerTokens -= 2
		if om.timerTokens == -1 {
			om.timerTokens = 0
		}
		pool, balance = "timer", om.timerTokens
	default:
		om.timerTokens--
		pool, balance = "timer", om.timerTokens
	}
	timer := om.timerTokens
	spy, guess := om.spymasterID, om.guesserID
	started := om.startedAt
	matchID := om.match.ID
	om.mu.Unlock()

	charge := Event{Type: EvBystanderCharge, Payload: map[string]any{
		"position": n.Position,
		"pool":     pool,
		"balance":  balance,
	}}
	if conn := m.conn(spy); conn != nil {
		if err := conn.Deliver(charge); err != nil {
			m.Disconnect(spy)
			return domain.StatusOK
		}
	}

	if timer >= 0 {
		m.trySwapRoles(om)
		return domain.StatusOK
	}

	// out of time: the match is lost
	elapsed := time.Since(started)
	if elapsed >= time.Hour {
		elapsed = time.Hour - time.Second
	}
	m.removeMatch(matchID, spy, guess)
	MatchOutcomes.WithLabelValues("timeout").Inc()

	ev := Event{Type: EvMatchTimeout, Payload: map[string]string{"elapsed": formatElapsed(elapsed)}}
	for _, id := range []int64{spy, guess} {
		if conn := m.conn(id); conn != nil {
			if err := conn.Deliver(ev); err != nil {
				m.dropConn(id)
			}
		}
	}

	return domain.StatusOK
}

// NotifyPickedAssassin terminates the match immediately. Only the current
// guesser's assassin counter is updated; a failed update tells only them.
func (m *MatchOrchestrator) NotifyPickedAssassin(n PickNotification) domain.Status {
	om := m.matchOf(n.PlayerID)
	if om == nil {
		return domain.StatusNotFound
	}

	om.mu.Lock()
	spy, guess := om.spymasterID, om.guesserID
	started := om.startedAt
	matchID := om.match.ID
	om.mu.Unlock()

	elapsed := time.Since(started)
	if elapsed >= time.Hour {
		elapsed = time.Hour - time.Second
	}
	m.removeMatch(matchID, spy, guess)
	MatchOutcomes.WithLabelValues("assassin").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), scoreboardTimeout)
	defer cancel()
	if err := m.scoreboard.IncrementAssassins(ctx, guess); err != nil {
		logger.Error("match: assassin record failed", "player", guess, "error", err)
		if conn := m.conn(guess); conn != nil {
			_ = conn.Deliver(Event{Type: EvStatsNotSaved})
		}
	}

	ev := Event{Type: EvAssassinsRevealed, Payload: map[string]any{
		"position": n.Position,
		"elapsed":  formatElapsed(elapsed),
	}}
	for _, id := range []int64{spy, guess} {
		if conn := m.conn(id); conn != nil {
			if err := conn.Deliver(ev); err != nil {
				m.dropConn(id)
			}
		}
	}

	return domain.StatusOK
}

// Disconnect removes the player's session. A player holding a role takes the
// whole match down with them; the counterpart is told the companion is gone.
func (m *MatchOrchestrator) Disconnect(playerID int64) {
	m.mu.Lock()
	conn, hadConn := m.conns[playerID]
	delete(m.conns, playerID)
	matchID, inMatch := m.playerMatch[playerID]
	var counterpartID int64
	if inMatch {
		om := m.matches[matchID]
		delete(m.matches, matchID)
		delete(m.playerMatch, playerID)
		om.mu.Lock()
		if om.spymasterID == playerID {
			counterpartID = om.guesserID
		} else {
			counterpartID = om.spymasterID
		}
		om.mu.Unlock()
		delete(m.playerMatch, counterpartID)
	}
	m.mu.Unlock()

	if inMatch {
		ActiveMatches.Dec()
		MatchOutcomes.WithLabelValues("abandoned").Inc()
		if cpConn := m.conn(counterpartID); cpConn != nil {
			if err := cpConn.Deliver(Event{Type: EvCompanionDisconnected}); err != nil {
				m.dropConn(counterpartID)
			}
		}
	}
	if hadConn {
		conn.Abort()
	}
}

func (m *MatchOrchestrator) matchOf(playerID int64) *ongoingMatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	matchID, ok := m.playerMatch[playerID]
	if !ok {
		return nil
	}
	return m.matches[matchID]
}

func (m *MatchOrchestrator) conn(playerID int64) Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conns[playerID]
}

func (m *MatchOrchestrator) deliverTo(playerID int64, ev Event) bool {
	conn := m.conn(playerID)
	if conn == nil {
		return false
	}
	return conn.Deliver(ev) == nil
}

func (m *MatchOrchestrator) notifyCompanionLost(playerID int64) {
	if conn := m.conn(playerID); conn != nil {
		_ = conn.Deliver(Event{Type: EvCompanionDisconnected})
	}
}

// removeMatch clears the runtime state and both role mappings after a
// terminal event. Connections stay registered; only faults abort them.
func (m *MatchOrchestrator) removeMatch(matchID string, spy, guess int64) {
	m.mu.Lock()
	_, existed := m.matches[matchID]
	delete(m.matches, matchID)
	delete(m.playerMatch, spy)
	delete(m.playerMatch, guess)
	m.mu.Unlock()
	if existed {
		ActiveMatches.Dec()
	}
}

func (m *MatchOrchestrator) dropConn(playerID int64) {
	m.mu.Lock()
	conn, ok := m.conns[playerID]
	if ok {
		delete(m.conns, playerID)
	}
	m.mu.Unlock()
	if ok {
		conn.Abort()
	}
}

// formatElapsed renders a match duration as minutes:seconds.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
