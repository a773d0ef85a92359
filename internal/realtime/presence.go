package realtime

import (
	"context"
	"sync"

	"duet_backend/internal/domain"
	"duet_backend/internal/logger"
)

type presenceEntry struct {
	player domain.PlayerRef
	conn   Connection
}

// PresenceManager tracks globally online players and fans friend
// online/offline events out to whoever cares. It owns its registry alone;
// map mutation and the online snapshot used for fan-out happen inside one
// critical section per call, deliveries happen after it is released.
type PresenceManager struct {
	mu      sync.Mutex
	online  map[int64]presenceEntry
	friends FriendDirectory
}

func NewPresenceManager(friends FriendDirectory) *PresenceManager {
	return &PresenceManager{
		online:  make(map[int64]presenceEntry),
		friends: friends,
	}
}

// Connect registers the caller's connection. A second registration for the
// same player id fails UNAUTHORIZED; the first session must disconnect
// before a new one can take its place.
func (m *PresenceManager) Connect(ctx context.Context, player domain.PlayerRef, conn Connection) domain.Status {
	friends, err := m.friends.FriendsOf(ctx, player.ID)
	if err != nil {
		// degrade to an empty friend list, the session itself still counts
		logger.Error("presence: friend lookup failed", "player", player.ID, "error", err)
		friends = nil
	}

	m.mu.Lock()
	if _, ok := m.online[player.ID]; ok {
		m.mu.Unlock()
		return domain.StatusUnauthorized
	}
	m.online[player.ID] = presenceEntry{player: player, conn: conn}
	onlineFriends := m.onlineAmongLocked(friends)
	m.mu.Unlock()
	OnlinePlayers.Inc()

	reachable := make([]domain.PlayerRef, 0, len(onlineFriends))
	for _, f := range onlineFriends {
		if err := f.conn.Deliver(Event{Type: EvFriendOnline, Payload: player}); err != nil {
			logger.Warn("presence: friend notify failed, dropping", "friend", f.player.ID, "error", err)
			m.drop(f.player.ID)
			continue
		}
		reachable = append(reachable, f.player)
	}

	if err := conn.Deliver(Event{Type: EvFriendsOnline, Payload: reachable}); err != nil {
		// the new session itself is unreachable; roll it back entirely
		m.mu.Lock()
		delete(m.online, player.ID)
		m.mu.Unlock()
		OnlinePlayers.Dec()
		conn.Abort()
		return domain.StatusClientUnreachable
	}

	return domain.StatusOK
}

// Disconnect removes the player and tells their online friends. Notification
// faults silently drop the faulted friend's session.
func (m *PresenceManager) Disconnect(ctx context.Context, playerID int64) domain.Status {
	friends, err := m.friends.FriendsOf(ctx, playerID)
	if err != nil {
		logger.Error("presence: friend lookup failed", "player", playerID, "error", err)
		friends = nil
	}

	m.mu.Lock()
	entry, ok := m.online[playerID]
	if !ok {
		m.mu.Unlock()
		return domain.StatusNotFound
	}
	delete(m.online, playerID)
	onlineFriends := m.onlineAmongLocked(friends)
	m.mu.Unlock()
	OnlinePlayers.Dec()

	for _, f := range onlineFriends {
		if err := f.conn.Deliver(Event{Type: EvFriendOffline, Payload: entry.player}); err != nil {
			m.drop(f.player.ID)
		}
	}

	return domain.StatusOK
}

// NotifyNewFriendship tells each side the other came online, but only the
// sides that currently hold a session. A delivery fault drops that side
// without affecting the other.
func (m *PresenceManager) NotifyNewFriendship(a, b domain.PlayerRef) {
	m.notifyPair(a, b, EvFriendOnline)
}

// NotifyFriendshipEnded mirrors NotifyNewFriendship with offline events.
func (m *PresenceManager) NotifyFriendshipEnded(a, b domain.PlayerRef) {
	m.notifyPair(a, b, EvFriendOffline)
}

func (m *PresenceManager) notifyPair(a, b domain.PlayerRef, evType string) {
	m.mu.Lock()
	entryA, okA := m.online[a.ID]
	entryB, okB := m.online[b.ID]
	m.mu.Unlock()

	if okA {
		if err := entryA.conn.Deliver(Event{Type: evType, Payload: b}); err != nil {
			m.drop(a.ID)
		}
	}
	if okB {
		if err := entryB.conn.Deliver(Event{Type: evType, Payload: a}); err != nil {
			m.drop(b.ID)
		}
	}
}

// KickPlayer delivers the kick reason best-effort and then disconnects the
// player unconditionally.
func (m *PresenceManager) KickPlayer(ctx context.Context, playerID int64, reason string) domain.Status {
	m.mu.Lock()
	entry, ok := m.online[playerID]
	m.mu.Unlock()
	if !ok {
		return domain.StatusNotFound
	}

	if err := entry.conn.Deliver(Event{Type: EvKicked, Payload: map[string]string{"reason": reason}}); err != nil {
		logger.Warn("presence: kick notice undeliverable", "player", playerID, "error", err)
	}

	st := m.Disconnect(ctx, playerID)
	entry.conn.Abort()
	return st
}

// IsPlayerOnline is a pure lookup.
func (m *PresenceManager) IsPlayerOnline(playerID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.online[playerID]
	return ok
}

// onlineAmongLocked intersects a friend list with the online registry.
// Caller holds mu.
func (m *PresenceManager) onlineAmongLocked(friends []domain.PlayerRef) []presenceEntry {
	out := make([]presenceEntry, 0, len(friends))
	for _, f := range friends {
		if entry, ok := m.online[f.ID]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// drop removes a faulted session and aborts its channel.
func (m *PresenceManager) drop(playerID int64) {
	m.mu.Lock()
	entry, ok := m.online[playerID]
	if ok {
		delete(m.online, playerID)
	}
	m.mu.Unlock()
	if ok {
		OnlinePlayers.Dec()
		entry.conn.Abort()
	}
}
