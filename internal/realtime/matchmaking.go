package realtime

import (
	"sync"

	"duet_backend/internal/board"
	"duet_backend/internal/domain"
	"duet_backend/internal/logger"
)

// CancelReasonDisconnect is sent to the remaining side when the other
// participant's session dies while a proposal is pending.
const CancelReasonDisconnect = "companion disconnected"

// MatchmakingManager runs the propose → acknowledge → ready handshake for
// arranged matches. A pending entry lives until both sides confirm, one side
// cancels, or one side disconnects; there is deliberately no timeout.
type MatchmakingManager struct {
	mu            sync.Mutex
	conns         map[int64]Connection
	pending       map[string]*domain.PendingArrangedMatch
	playerPending map[int64]string

	gen *board.Generator
}

func NewMatchmakingManager(gen *board.Generator) *MatchmakingManager {
	return &MatchmakingManager{
		conns:         make(map[int64]Connection),
		pending:       make(map[string]*domain.PendingArrangedMatch),
		playerPending: make(map[int64]string),
		gen:           gen,
	}
}

func (m *MatchmakingManager) Connect(playerID int64, conn Connection) domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[playerID]; ok {
		return domain.StatusUnauthorized
	}
	m.conns[playerID] = conn
	return domain.StatusOK
}

// Disconnect removes the registry entry and cancels the player's pending
// proposal, if any.
func (m *MatchmakingManager) Disconnect(playerID int64) {
	m.mu.Lock()
	delete(m.conns, playerID)
	_, hasPending := m.playerPending[playerID]
	m.mu.Unlock()

	if hasPending {
		m.RequestMatchCancel(playerID, CancelReasonDisconnect)
	}
}

// RequestArrangedMatch builds the match and sends the payload plus a pending
// notice to both participants. A participant already inside a pending
// handshake cannot enter a second one. Either delivery failing discards the
// whole proposal.
func (m *MatchmakingManager) RequestArrangedMatch(cfg *domain.MatchConfiguration) (*domain.Match, domain.Status) {
	if cfg == nil {
		return nil, domain.StatusMissingData
	}

	m.mu.Lock()
	reqConn, reqOK := m.conns[cfg.Requester.ID]
	compConn, compOK := m.conns[cfg.Companion.ID]
	_, reqBusy := m.playerPending[cfg.Requester.ID]
	_, compBusy := m.playerPending[cfg.Companion.ID]
	m.mu.Unlock()

	if !reqOK {
		return nil, domain.StatusClientDisconnect
	}
	if !compOK {
		return nil, domain.StatusClientUnreachable
	}
	if reqBusy || compBusy {
		return nil, domain.StatusConflict
	}

	match := m.gen.Generate(*cfg)

	m.mu.Lock()
	m.pending[match.ID] = &domain.PendingArrangedMatch{
		Match:     &match,
		Confirmed: make(map[int64]bool, 2),
	}
	m.playerPending[cfg.Requester.ID] = match.ID
	m.playerPending[cfg.Companion.ID] = match.ID
	m.mu.Unlock()
	PendingMatches.Inc()

	for _, conn := range []Connection{reqConn, compConn} {
		if err := conn.Deliver(Event{Type: EvMatchProposed, Payload: match}); err != nil {
			m.discard(match.ID)
			return nil, domain.StatusClientUnreachable
		}
		if err := conn.Deliver(Event{Type: EvRequestPending, Payload: map[string]string{"match_id": match.ID}}); err != nil {
			m.discard(match.ID)
			return nil, domain.StatusClientUnreachable
		}
	}

	return &match, domain.StatusOK
}

// ConfirmMatchReceived records one side's acknowledgement. An unknown match
// id is ignored. Once both sides have confirmed, both get a ready event and
// the pending entry is cleared.
func (m *MatchmakingManager) ConfirmMatchReceived(playerID int64, matchID string) domain.Status {
	m.mu.Lock()
	p, ok := m.pending[matchID]
	if !ok {
		m.mu.Unlock()
		return domain.StatusOK
	}
	if playerID != p.Match.Requester.ID && playerID != p.Match.Companion.ID {
		m.mu.Unlock()
		return domain.StatusWrongData
	}
	p.Confirmed[playerID] = true
	ready := p.BothConfirmed()
	var reqConn, compConn Connection
	if ready {
		m.clearPendingLocked(p, matchID)
		reqConn = m.conns[p.Match.Requester.ID]
		compConn = m.conns[p.Match.Companion.ID]
	}
	m.mu.Unlock()

	if !ready {
		return domain.StatusOK
	}
	PendingMatches.Dec()

	payload := map[string]string{"match_id": matchID}
	for id, conn := range map[int64]Connection{p.Match.Requester.ID: reqConn, p.Match.Companion.ID: compConn} {
		if conn == nil {
			continue
		}
		if err := conn.Deliver(Event{Type: EvPlayersReady, Payload: payload}); err != nil {
			logger.Warn("matchmaking: ready notice undeliverable", "player", id, "error", err)
		}
	}

	return domain.StatusOK
}

// RequestMatchCancel drops the caller's pending proposal and tells the other
// side why.
func (m *MatchmakingManager) RequestMatchCancel(playerID int64, reason string) domain.Status {
	m.mu.Lock()
	matchID, ok := m.playerPending[playerID]
	if !ok {
		m.mu.Unlock()
		return domain.StatusNotFound
	}
	p := m.pending[matchID]
	m.clearPendingLocked(p, matchID)

	otherID := p.Match.Requester.ID
	if otherID == playerID {
		otherID = p.Match.Companion.ID
	}
	otherConn := m.conns[otherID]
	m.mu.Unlock()
	PendingMatches.Dec()

	if otherConn != nil {
		ev := Event{Type: EvMatchCanceled, Payload: map[string]string{"match_id": matchID, "reason": reason}}
		if err := otherConn.Deliver(ev); err != nil {
			logger.Warn("matchmaking: cancel notice undeliverable", "player", otherID, "error", err)
		}
	}

	return domain.StatusOK
}

// clearPendingLocked removes the pending entry and the per-player index
// entries behind matchID. A player index entry is dropped only while it still
// points at this match. Caller holds mu.
func (m *MatchmakingManager) clearPendingLocked(p *domain.PendingArrangedMatch, matchID string) {
	delete(m.pending, matchID)
	for _, id := range []int64{p.Match.Requester.ID, p.Match.Companion.ID} {
		if m.playerPending[id] == matchID {
			delete(m.playerPending, id)
		}
	}
}

// discard removes a pending entry after a failed proposal delivery.
func (m *MatchmakingManager) discard(matchID string) {
	m.mu.Lock()
	p, ok := m.pending[matchID]
	if ok {
		m.clearPendingLocked(p, matchID)
	}
	m.mu.Unlock()
	if ok {
		PendingMatches.Dec()
	}
}
