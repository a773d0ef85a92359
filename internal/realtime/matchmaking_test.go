package realtime

import (
	"testing"

	"duet_backend/internal/board"
	"duet_backend/internal/domain"
)

func matchmakingForTest() *MatchmakingManager {
	return NewMatchmakingManager(board.NewGenerator(1))
}

func normalConfig() *domain.MatchConfiguration {
	return &domain.MatchConfiguration{
		Requester: alice,
		Companion: bob,
		Rules:     domain.MatchRules{Gamemode: domain.GamemodeNormal},
	}
}

func TestRequestArrangedMatchValidation(t *testing.T) {
	m := matchmakingForTest()

	if _, st := m.RequestArrangedMatch(nil); st != domain.StatusMissingData {
		t.Errorf("nil config: got %s, want MISSING_DATA", st)
	}

	m.Connect(alice.ID, newFakeConn())
	if _, st := m.RequestArrangedMatch(normalConfig()); st != domain.StatusClientUnreachable {
		t.Errorf("companion offline: got %s, want CLIENT_UNREACHABLE", st)
	}
}

func TestRequestArrangedMatchDeliversPayload(t *testing.T) {
	m := matchmakingForTest()
	aConn := newFakeConn()
	bConn := newFakeConn()
	m.Connect(alice.ID, aConn)
	m.Connect(bob.ID, bConn)

	match, st := m.RequestArrangedMatch(normalConfig())
	if !st.OK() {
		t.Fatalf("request: %s", st)
	}

	for name, conn := range map[string]*fakeConn{"requester": aConn, "companion": bConn} {
		ev, ok := conn.last(EvMatchProposed)
		if !ok {
			t.Fatalf("%s missed the match payload", name)
		}
		got := ev.Payload.(domain.Match)
		if got.ID != match.ID {
			t.Errorf("%s received wrong match", name)
		}
		a, by, as := got.RequesterBoard.Counts()
		if a != 9 || by != 13 || as != 3 {
			t.Errorf("%s board counts %d/%d/%d, want 9/13/3", name, a, by, as)
		}
		if !conn.has(EvRequestPending) {
			t.Errorf("%s missed the pending notice", name)
		}
	}
}

func TestRequestArrangedMatchFaultDiscards(t *testing.T) {
	m := matchmakingForTest()
	m.Connect(alice.ID, newFakeConn())
	bConn := newFakeConn()
	bConn.failAll = true
	m.Connect(bob.ID, bConn)

	if _, st := m.RequestArrangedMatch(normalConfig()); st != domain.StatusClientUnreachable {
		t.Fatalf("request with dead companion: got %s, want CLIENT_UNREACHABLE", st)
	}
	m.mu.Lock()
	pendingLeft := len(m.pending)
	m.mu.Unlock()
	if pendingLeft != 0 {
		t.Error("failed proposal left a pending entry behind")
	}
}

func TestRequestArrangedMatchRejectsBusyParticipants(t *testing.T) {
	m := matchmakingForTest()
	m.Connect(alice.ID, newFakeConn())
	m.Connect(bob.ID, newFakeConn())
	cConn := newFakeConn()
	m.Connect(carol.ID, cConn)

	if _, st := m.RequestArrangedMatch(normalConfig()); !st.OK() {
		t.Fatalf("first request: %s", st)
	}

	aliceCarol := &domain.MatchConfiguration{
		Requester: alice,
		Companion: carol,
		Rules:     domain.MatchRules{Gamemode: domain.GamemodeNormal},
	}
	if _, st := m.RequestArrangedMatch(aliceCarol); st != domain.StatusConflict {
		t.Errorf("requester already pending: got %s, want CONFLICT", st)
	}
	carolBob := &domain.MatchConfiguration{
		Requester: carol,
		Companion: bob,
		Rules:     domain.MatchRules{Gamemode: domain.GamemodeNormal},
	}
	if _, st := m.RequestArrangedMatch(carolBob); st != domain.StatusConflict {
		t.Errorf("companion already pending: got %s, want CONFLICT", st)
	}

	// the rejected requests left nothing behind
	m.mu.Lock()
	pendingLeft := len(m.pending)
	m.mu.Unlock()
	if pendingLeft != 1 {
		t.Fatalf("%d pending entries after rejections, want 1", pendingLeft)
	}

	// canceling the first proposal frees both participants again
	if st := m.RequestMatchCancel(bob.ID, "changed my mind"); !st.OK() {
		t.Fatalf("cancel: %s", st)
	}
	match, st := m.RequestArrangedMatch(aliceCarol)
	if !st.OK() {
		t.Fatalf("request after cancel: %s", st)
	}

	// the replacement proposal is fully owned by its participants: the
	// requester dropping out cancels it toward the companion
	m.Disconnect(alice.ID)
	ev, ok := cConn.last(EvMatchCanceled)
	if !ok {
		t.Fatal("companion missed the cancellation of the replacement proposal")
	}
	if id := ev.Payload.(map[string]string)["match_id"]; id != match.ID {
		t.Errorf("cancellation names match %q, want %q", id, match.ID)
	}
}

func TestConfirmFiresReadyOnlyWhenBothConfirm(t *testing.T) {
	m := matchmakingForTest()
	aConn := newFakeConn()
	bConn := newFakeConn()
	m.Connect(alice.ID, aConn)
	m.Connect(bob.ID, bConn)

	match, _ := m.RequestArrangedMatch(normalConfig())

	if st := m.ConfirmMatchReceived(alice.ID, "no-such-match"); !st.OK() {
		t.Errorf("unknown match id not ignored: %s", st)
	}

	m.ConfirmMatchReceived(alice.ID, match.ID)
	if aConn.has(EvPlayersReady) || bConn.has(EvPlayersReady) {
		t.Fatal("ready fired on a single confirmation")
	}

	m.ConfirmMatchReceived(bob.ID, match.ID)
	if !aConn.has(EvPlayersReady) || !bConn.has(EvPlayersReady) {
		t.Fatal("ready did not fire after both confirmations")
	}
	if aConn.count(EvPlayersReady) != 1 {
		t.Error("ready fired more than once")
	}

	// entry cleared: a third confirmation is a no-op
	m.ConfirmMatchReceived(alice.ID, match.ID)
	if aConn.count(EvPlayersReady) != 1 {
		t.Error("cleared entry re-fired ready")
	}
}

func TestCancelNotifiesOtherSide(t *testing.T) {
	m := matchmakingForTest()
	aConn := newFakeConn()
	bConn := newFakeConn()
	m.Connect(alice.ID, aConn)
	m.Connect(bob.ID, bConn)

	m.RequestArrangedMatch(normalConfig())

	if st := m.RequestMatchCancel(alice.ID, "changed my mind"); !st.OK() {
		t.Fatalf("cancel: %s", st)
	}
	if !bConn.has(EvMatchCanceled) {
		t.Error("companion missed the cancellation")
	}
	if aConn.has(EvMatchCanceled) {
		t.Error("canceling side notified about its own cancel")
	}
	if st := m.RequestMatchCancel(alice.ID, "again"); st != domain.StatusNotFound {
		t.Errorf("second cancel: got %s, want NOT_FOUND", st)
	}
}

func TestDisconnectWhilePendingCancels(t *testing.T) {
	m := matchmakingForTest()
	m.Connect(alice.ID, newFakeConn())
	bConn := newFakeConn()
	m.Connect(bob.ID, bConn)

	m.RequestArrangedMatch(normalConfig())
	m.Disconnect(alice.ID)

	ev, ok := bConn.last(EvMatchCanceled)
	if !ok {
		t.Fatal("companion missed the disconnect cancellation")
	}
	if reason := ev.Payload.(map[string]string)["reason"]; reason != CancelReasonDisconnect {
		t.Errorf("cancel reason %q, want %q", reason, CancelReasonDisconnect)
	}
}
