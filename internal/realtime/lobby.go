package realtime

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"

	"duet_backend/internal/domain"
	"duet_backend/internal/logger"
)

var errHostOffline = errors.New("host not connected")

const (
	lobbyCodeLength   = 5
	lobbyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lobbyCodeRetries  = 16
)

type partyState struct {
	mu    sync.Mutex
	party domain.Party
}

// LobbyManager tracks parties keyed by short code. It keeps its own
// connection registry, independent of the other managers. Cross-key
// invariants (one guest per party, one party per player) are guarded by the
// manager lock plus a per-party lock; deliveries run outside both.
type LobbyManager struct {
	mu         sync.Mutex
	conns      map[int64]Connection
	parties    map[string]*partyState
	memberCode map[int64]string

	players PlayerDirectory
	mailer  Mailer
	rnd     *rand.Rand
}

func NewLobbyManager(players PlayerDirectory, mailer Mailer, seed int64) *LobbyManager {
	return &LobbyManager{
		conns:      make(map[int64]Connection),
		parties:    make(map[string]*partyState),
		memberCode: make(map[int64]string),
		players:    players,
		mailer:     mailer,
		rnd:        rand.New(rand.NewSource(seed)),
	}
}

// Connect registers the player's notifier with this manager.
func (m *LobbyManager) Connect(playerID int64, conn Connection) domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[playerID]; ok {
		return domain.StatusUnauthorized
	}
	m.conns[playerID] = conn
	return domain.StatusOK
}

// Disconnect drops the registry entry; a player still holding a party
// abandons it.
func (m *LobbyManager) Disconnect(playerID int64) {
	m.mu.Lock()
	delete(m.conns, playerID)
	code, inParty := m.memberCode[playerID]
	m.mu.Unlock()

	if inParty {
		m.LeaveParty(playerID, code)
	}
}

// CreateParty opens a new party hosted by player and returns its code.
func (m *LobbyManager) CreateParty(player *domain.PlayerRef) (string, domain.Status) {
	if player == nil {
		return "", domain.StatusMissingData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.memberCode[player.ID]; ok {
		return "", domain.StatusUnallowed
	}

	code, ok := m.generateCodeLocked()
	if !ok {
		logger.Error("lobby: code space exhausted", "parties", len(m.parties))
		return "", domain.StatusServerError
	}

	m.parties[code] = &partyState{party: domain.Party{Code: code, Host: *player}}
	m.memberCode[player.ID] = code
	ActiveParties.Inc()

	return code, domain.StatusOK
}

// generateCodeLocked draws random codes until one is unused. Caller holds mu.
func (m *LobbyManager) generateCodeLocked() (string, bool) {
	for i := 0; i < lobbyCodeRetries; i++ {
		var b strings.Builder
		for j := 0; j < lobbyCodeLength; j++ {
			b.WriteByte(lobbyCodeAlphabet[m.rnd.Intn(len(lobbyCodeAlphabet))])
		}
		code := b.String()
		if _, taken := m.parties[code]; !taken {
			return code, true
		}
	}
	return "", false
}

// InviteToParty notifies targetID about the party in-app (best effort) and
// mails an invitation. Only a failed mail degrades the overall status.
func (m *LobbyManager) InviteToParty(ctx context.Context, host domain.PlayerRef, targetID int64, code string) domain.Status {
	m.mu.Lock()
	ps, ok := m.parties[code]
	targetConn := m.conns[targetID]
	m.mu.Unlock()
	if !ok {
		return domain.StatusNotFound
	}

	ps.mu.Lock()
	if ps.party.Host.ID != host.ID {
		ps.mu.Unlock()
		return domain.StatusUnauthorized
	}
	if ps.party.HasGuest() {
		ps.mu.Unlock()
		return domain.StatusUnallowed
	}
	ps.mu.Unlock()

	if targetConn != nil {
		ev := Event{Type: EvPartyInvite, Payload: map[string]any{"code": code, "host": host}}
		if err := targetConn.Deliver(ev); err != nil {
			logger.Warn("lobby: in-app invite undeliverable", "target", targetID, "error", err)
		}
	}

	target, err := m.players.GetByID(ctx, targetID)
	if err != nil {
		logger.Warn("lobby: invite target lookup failed", "target", targetID, "error", err)
		return domain.StatusClientUnreachable
	}
	if err := m.mailer.SendPartyInvite(ctx, target, host, code); err != nil {
		logger.Warn("lobby: invite mail failed", "target", targetID, "error", err)
		return domain.StatusClientUnreachable
	}

	return domain.StatusOK
}

// JoinParty fills the guest slot. A player already hosting or guesting a
// party cannot join another one. The slot and the player→code mapping are
// set together and rolled back together if the host cannot be notified.
func (m *LobbyManager) JoinParty(guest domain.PlayerRef, code string) domain.Status {
	m.mu.Lock()
	_, connected := m.conns[guest.ID]
	_, inParty := m.memberCode[guest.ID]
	ps, found := m.parties[code]
	m.mu.Unlock()

	if !connected {
		return domain.StatusClientDisconnect
	}
	if inParty {
		return domain.StatusUnallowed
	}
	if !found {
		return domain.StatusNotFound
	}

	ps.mu.Lock()
	if ps.party.HasGuest() {
		ps.mu.Unlock()
		return domain.StatusConflict
	}
	g := guest
	ps.party.Guest = &g
	hostID := ps.party.Host.ID
	ps.mu.Unlock()

	m.mu.Lock()
	m.memberCode[guest.ID] = code
	hostConn := m.conns[hostID]
	m.mu.Unlock()

	var deliverErr error
	if hostConn == nil {
		deliverErr = errHostOffline
	} else {
		deliverErr = hostConn.Deliver(Event{Type: EvGuestJoined, Payload: guest})
	}
	if deliverErr != nil {
		// host unreachable: undo both halves of the join
		ps.mu.Lock()
		if ps.party.Guest != nil && ps.party.Guest.ID == guest.ID {
			ps.party.Guest = nil
		}
		ps.mu.Unlock()
		m.mu.Lock()
		delete(m.memberCode, guest.ID)
		m.mu.Unlock()
		return domain.StatusClientUnreachable
	}

	return domain.StatusOK
}

// LeaveParty removes playerID from the party behind code. A leaving host
// dissolves the party; a leaving guest only frees the slot.
func (m *LobbyManager) LeaveParty(playerID int64, code string) domain.Status {
	m.mu.Lock()
	ps, ok := m.parties[code]
	m.mu.Unlock()
	if !ok {
		return domain.StatusNotFound
	}

	ps.mu.Lock()
	isHost := ps.party.Host.ID == playerID
	isGuest := ps.party.Guest != nil && ps.party.Guest.ID == playerID
	var guest *domain.PlayerRef
	if ps.party.Guest != nil {
		g := *ps.party.Guest
		guest = &g
	}
	host := ps.party.Host
	if isGuest {
		ps.party.Guest = nil
	}
	ps.mu.Unlock()

	switch {
	case isHost:
		m.mu.Lock()
		delete(m.parties, code)
		delete(m.memberCode, playerID)
		var guestConn Connection
		if guest != nil {
			delete(m.memberCode, guest.ID)
			guestConn = m.conns[guest.ID]
		}
		m.mu.Unlock()
		ActiveParties.Dec()

		if guestConn != nil {
			if err := guestConn.Deliver(Event{Type: EvPartyAbandoned, Payload: map[string]string{"code": code}}); err != nil {
				m.dropConn(guest.ID)
			}
		}
		return domain.StatusOK

	case isGuest:
		m.mu.Lock()
		delete(m.memberCode, playerID)
		hostConn := m.conns[host.ID]
		m.mu.Unlock()

		if hostConn != nil {
			if err := hostConn.Deliver(Event{Type: EvGuestLeft, Payload: map[string]any{"code": code, "guest_id": playerID}}); err != nil {
				m.dropConn(host.ID)
			}
		}
		return domain.StatusOK

	default:
		return domain.StatusWrongData
	}
}

// Party returns a copy of the party behind code, mostly for handlers and
// tests.
func (m *LobbyManager) Party(code string) (domain.Party, bool) {
	m.mu.Lock()
	ps, ok := m.parties[code]
	m.mu.Unlock()
	if !ok {
		return domain.Party{}, false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p := ps.party
	if ps.party.Guest != nil {
		g := *ps.party.Guest
		p.Guest = &g
	}
	return p, true
}

func (m *LobbyManager) dropConn(playerID int64) {
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
