package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"duet_backend/internal/domain"
)

var errPeerGone = errors.New("peer gone")

// fakeConn records every delivered event and can be told to fault, either
// wholesale or for specific event types.
type fakeConn struct {
	mu        sync.Mutex
	events    []Event
	failAll   bool
	failTypes map[string]bool
	aborted   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{failTypes: make(map[string]bool)}
}

func (c *fakeConn) Deliver(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll || c.failTypes[ev.Type] {
		return errPeerGone
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
}

func (c *fakeConn) failOn(evType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failTypes[evType] = true
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

func (c *fakeConn) count(evType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == evType {
			n++
		}
	}
	return n
}

func (c *fakeConn) has(evType string) bool { return c.count(evType) > 0 }

func (c *fakeConn) last(evType string) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == evType {
			return c.events[i], true
		}
	}
	return Event{}, false
}

func (c *fakeConn) isAborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

// fakeFriends is an in-memory friend directory.
type fakeFriends struct {
	friends map[int64][]domain.PlayerRef
	err     error
}

func (f *fakeFriends) FriendsOf(_ context.Context, playerID int64) ([]domain.PlayerRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.friends[playerID], nil
}

// fakePlayers resolves accounts from a map.
type fakePlayers struct {
	players map[int64]*domain.Player
}

func (f *fakePlayers) GetByID(_ context.Context, id int64) (*domain.Player, error) {
	p, ok := f.players[id]
	if !ok {
		return nil, errors.New("no such player")
	}
	return p, nil
}

// fakeMailer records invitations and can be told to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeMailer) SendPartyInvite(_ context.Context, to *domain.Player, _ domain.PlayerRef, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, to.Email+":"+code)
	return nil
}

// fakeScoreboard records win/assassin updates; failFor makes updates for a
// given player fail.
type fakeScoreboard struct {
	mu        sync.Mutex
	wins      map[int64]time.Duration
	assassins map[int64]int
	failFor   map[int64]bool
}

func newFakeScoreboard() *fakeScoreboard {
	return &fakeScoreboard{
		wins:      make(map[int64]time.Duration),
		assassins: make(map[int64]int),
		failFor:   make(map[int64]bool),
	}
}

func (f *fakeScoreboard) RecordWin(_ context.Context, playerID int64, elapsed time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[playerID] {
		return errors.New("db down")
	}
	f.wins[playerID] = elapsed
	return nil
}

func (f *fakeScoreboard) IncrementAssassins(_ context.Context, playerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[playerID] {
		return errors.New("db down")
	}
	f.assassins[playerID]++
	return nil
}

func (f *fakeScoreboard) winFor(playerID int64) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.wins[playerID]
	return d, ok
}

func (f *fakeScoreboard) assassinsFor(playerID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assassins[playerID]
}

var (
	alice = domain.PlayerRef{ID: 1, Username: "alice"}
	bob   = domain.PlayerRef{ID: 2, Username: "bob"}
	carol = domain.PlayerRef{ID: 3, Username: "carol"}
)
