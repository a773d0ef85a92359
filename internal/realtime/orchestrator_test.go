package realtime

import (
	"testing"

	"duet_backend/internal/board"
	"duet_backend/internal/domain"
)

func testMatch(rules domain.MatchRules) *domain.Match {
	return &domain.Match{
		ID:        "match-1",
		Requester: alice,
		Companion: bob,
		Rules:     rules,
	}
}

func normalRules() domain.MatchRules {
	return domain.MatchRules{
		Gamemode:     domain.GamemodeNormal,
		TurnSeconds:  board.NormalTurnSeconds,
		TimerTokens:  board.NormalTimerTokens,
		MaxAssassins: board.StandardAssassins,
	}
}

// joinedMatch wires two players into a fresh orchestrator and returns it
// with their connections.
func joinedMatch(t *testing.T, match *domain.Match, sb *fakeScoreboard) (*MatchOrchestrator, *fakeConn, *fakeConn) {
	t.Helper()
	if sb == nil {
		sb = newFakeScoreboard()
	}
	m := NewMatchOrchestrator(sb)
	aConn := newFakeConn()
	bConn := newFakeConn()
	m.Connect(alice.ID, aConn)
	m.Connect(bob.ID, bConn)
	if st := m.JoinMatch(match, alice.ID); !st.OK() {
		t.Fatalf("join requester: %s", st)
	}
	if st := m.JoinMatch(match, bob.ID); !st.OK() {
		t.Fatalf("join companion: %s", st)
	}
	return m, aConn, bConn
}

func (m *MatchOrchestrator) roles(t *testing.T, matchID string) (spy, guess int64) {
	t.Helper()
	m.mu.Lock()
	om, ok := m.matches[matchID]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("match %s not found", matchID)
	}
	om.mu.Lock()
	defer om.mu.Unlock()
	return om.spymasterID, om.guesserID
}

func (m *MatchOrchestrator) hasMatch(matchID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.matches[matchID]
	return ok
}

func TestJoinMatchRoles(t *testing.T) {
	match := testMatch(normalRules())
	m, _, _ := joinedMatch(t, match, nil)

	spy, guess := m.roles(t, match.ID)
	if spy != alice.ID || guess != bob.ID {
		t.Errorf("roles spy=%d guess=%d, want requester as spymaster", spy, guess)
	}
	if spy == guess {
		t.Error("both roles held by the same player")
	}

	if st := m.JoinMatch(match, alice.ID); st != domain.StatusWrongData {
		t.Errorf("rejoin filled slot: got %s, want WRONG_DATA", st)
	}
	m.Connect(carol.ID, newFakeConn())
	if st := m.JoinMatch(match, carol.ID); st != domain.StatusWrongData {
		t.Errorf("outsider join: got %s, want WRONG_DATA", st)
	}

	other := testMatch(normalRules())
	other.ID = "match-2"
	other.Companion = carol
	if st := m.JoinMatch(other, alice.ID); st != domain.StatusUnallowed {
		t.Errorf("join while holding a role: got %s, want UNALLOWED", st)
	}
}

func TestJoinMatchWithoutConnection(t *testing.T) {
	match := testMatch(normalRules())
	m := NewMatchOrchestrator(newFakeScoreboard())

	if st := m.JoinMatch(match, alice.ID); st != domain.StatusClientDisconnect {
		t.Fatalf("join without a session: got %s, want CLIENT_DISCONNECT", st)
	}
	// the rejected join must not leave resident state that no disconnect
	// would ever clean up
	if m.hasMatch(match.ID) {
		t.Error("rejected join left runtime state behind")
	}

	// a session that appears afterwards joins normally
	m.Connect(alice.ID, newFakeConn())
	if st := m.JoinMatch(match, alice.ID); !st.OK() {
		t.Errorf("join after connecting: %s", st)
	}
}

func TestSendClue(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, nil)

	if st := m.SendClue(bob.ID, "OCEAN 2"); st != domain.StatusUnauthorized {
		t.Errorf("clue from guesser: got %s, want UNAUTHORIZED", st)
	}

	if st := m.SendClue(alice.ID, "OCEAN 2"); !st.OK() {
		t.Fatalf("clue: %s", st)
	}
	ev, ok := bConn.last(EvClue)
	if !ok {
		t.Fatal("guesser missed the clue")
	}
	if text := ev.Payload.(map[string]string)["text"]; text != "OCEAN 2" {
		t.Errorf("clue text %q altered in transit", text)
	}
	if aConn.has(EvClue) {
		t.Error("clue echoed back to the spymaster")
	}
}

func TestSendClueFaultDoesNotTearDown(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, nil)
	bConn.failOn(EvClue)

	if st := m.SendClue(alice.ID, "RIVER 3"); !st.OK() {
		t.Fatalf("clue with dead guesser: %s", st)
	}
	if !aConn.has(EvCompanionDisconnected) {
		t.Error("spymaster not warned about the unreachable companion")
	}
	// the one asymmetric path: the match survives
	if !m.hasMatch(match.ID) {
		t.Error("clue fault tore the match down")
	}
}

func TestTurnTimeoutSpymaster(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, nil)

	if st := m.NotifyTurnTimeout(alice.ID, RoleSpymaster); !st.OK() {
		t.Fatalf("timeout: %s", st)
	}
	if !aConn.has(EvTurnChanged) || !bConn.has(EvTurnChanged) {
		t.Error("turn change not announced to both sides")
	}
	spy, guess := m.roles(t, match.ID)
	if spy != alice.ID || guess != bob.ID {
		t.Error("spymaster timeout swapped roles")
	}
	if aConn.has(EvTimerTokens) {
		t.Error("spymaster timeout charged a timer token")
	}
}

func TestTurnTimeoutGuesserSwapsRoles(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, nil)

	if st := m.NotifyTurnTimeout(bob.ID, RoleGuesser); !st.OK() {
		t.Fatalf("timeout: %s", st)
	}

	ev, ok := aConn.last(EvTimerTokens)
	if !ok {
		t.Fatal("spymaster not told the new token count")
	}
	if n := ev.Payload.(map[string]int)["timer_tokens"]; n != board.NormalTimerTokens-1 {
		t.Errorf("timer tokens = %d, want %d", n, board.NormalTimerTokens-1)
	}
	if !aConn.has(EvRolesChanged) || !bConn.has(EvRolesChanged) {
		t.Error("role change not announced to both sides")
	}
	spy, guess := m.roles(t, match.ID)
	if spy != bob.ID || guess != alice.ID {
		t.Errorf("roles not swapped: spy=%d guess=%d", spy, guess)
	}
}

func TestTurnTimeoutSwapFaultAbandons(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, nil)
	bConn.failOn(EvRolesChanged)

	m.NotifyTurnTimeout(bob.ID, RoleGuesser)

	if m.hasMatch(match.ID) {
		t.Error("match survived a failed role-change delivery")
	}
	if !bConn.isAborted() {
		t.Error("faulted channel not aborted")
	}
	if !aConn.has(EvCompanionDisconnected) {
		t.Error("counterpart not told the companion vanished")
	}
}

func TestAgentPickCountdownAndWin(t *testing.T) {
	sb := newFakeScoreboard()
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, sb)

	for i := 0; i < StartingAgents-1; i++ {
		st := m.NotifyPickedAgent(PickNotification{PlayerID: bob.ID, Position: i, NextTurnSeconds: 500})
		if !st.OK() {
			t.Fatalf("pick %d: %s", i, st)
		}
	}

	if n := aConn.count(EvAgentPick); n != StartingAgents-1 {
		t.Errorf("spymaster saw %d pick events, want %d", n, StartingAgents-1)
	}
	if bConn.has(EvAgentPick) {
		t.Error("pick forwarded to the guesser")
	}
	ev, _ := aConn.last(EvAgentPick)
	payload := ev.Payload.(map[string]int)
	if payload["remaining_agents"] != 1 {
		t.Errorf("remaining agents = %d, want 1", payload["remaining_agents"])
	}
	if payload["next_turn_seconds"] != board.MaxTurnSeconds {
		t.Errorf("next turn %d not clamped to %d", payload["next_turn_seconds"], board.MaxTurnSeconds)
	}

	// the fifteenth agent wins
	if st := m.NotifyPickedAgent(PickNotification{PlayerID: bob.ID, Position: 20}); !st.OK() {
		t.Fatalf("winning pick: %s", st)
	}
	if aConn.count(EvMatchWon) != 1 || bConn.count(EvMatchWon) != 1 {
		t.Error("match won not delivered exactly once to both sides")
	}
	if _, ok := sb.winFor(alice.ID); !ok {
		t.Error("no win recorded for the spymaster")
	}
	if _, ok := sb.winFor(bob.ID); !ok {
		t.Error("no win recorded for the guesser")
	}
	if m.hasMatch(match.ID) {
		t.Error("won match not removed")
	}
	if st := m.NotifyPickedAgent(PickNotification{PlayerID: bob.ID}); st != domain.StatusNotFound {
		t.Errorf("pick after termination: got %s, want NOT_FOUND", st)
	}
}

func TestWinScoreboardFailureNotifiesOnlyThatPlayer(t *testing.T) {
	sb := newFakeScoreboard()
	sb.failFor[alice.ID] = true
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, sb)

	for i := 0; i < StartingAgents; i++ {
		m.NotifyPickedAgent(PickNotification{PlayerID: bob.ID, Position: i})
	}

	if !aConn.has(EvStatsNotSaved) {
		t.Error("player with failed update not warned")
	}
	if bConn.has(EvStatsNotSaved) {
		t.Error("healthy player warned about someone else's update")
	}
	// the win itself still stands
	if !aConn.has(EvMatchWon) || !bConn.has(EvMatchWon) {
		t.Error("win event suppressed by scoreboard failure")
	}
}

func TestBystanderStandardEconomy(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, _ := joinedMatch(t, match, nil)

	if st := m.NotifyPickedBystander(PickNotification{PlayerID: bob.ID, Position: 3}); !st.OK() {
		t.Fatalf("bystander pick: %s", st)
	}
	ev, ok := aConn.last(EvBystanderCharge)
	if !ok {
		t.Fatal("spymaster not told about the charge")
	}
	payload := ev.Payload.(map[string]any)
	if payload["pool"] != "timer" {
		t.Errorf("pool %v, want timer", payload["pool"])
	}
	if payload["balance"] != board.NormalTimerTokens-1 {
		t.Errorf("balance %v, want %d", payload["balance"], board.NormalTimerTokens-1)
	}
	spy, guess := m.roles(t, match.ID)
	if spy != bob.ID || guess != alice.ID {
		t.Error("bystander pick with tokens left did not swap roles")
	}
}

func TestBystanderTimeoutLossSkipsScoreboard(t *testing.T) {
	sb := newFakeScoreboard()
	rules := normalRules()
	match := testMatch(rules)
	m, aConn, bConn := joinedMatch(t, match, sb)

	// drain the timer pool; in NORMAL the balance may go negative
	m.mu.Lock()
	om := m.matches[match.ID]
	m.mu.Unlock()
	om.mu.Lock()
	om.timerTokens = 0
	om.mu.Unlock()

	if st := m.NotifyPickedBystander(PickNotification{PlayerID: bob.ID, Position: 7}); !st.OK() {
		t.Fatalf("final bystander pick: %s", st)
	}
	if !aConn.has(EvMatchTimeout) || !bConn.has(EvMatchTimeout) {
		t.Error("timeout loss not announced to both sides")
	}
	if m.hasMatch(match.ID) {
		t.Error("lost match not removed")
	}
	if _, ok := sb.winFor(alice.ID); ok {
		t.Error("timeout loss wrote to the scoreboard")
	}
	if sb.assassinsFor(bob.ID) != 0 {
		t.Error("timeout loss touched the assassin counter")
	}
}

func TestBystanderCustomPools(t *testing.T) {
	rules := domain.MatchRules{
		Gamemode:        domain.GamemodeCustom,
		TurnSeconds:     60,
		TimerTokens:     5,
		BystanderTokens: 2,
		MaxAssassins:    board.StandardAssassins,
	}
	match := testMatch(rules)
	m, aConn, _ := joinedMatch(t, match, nil)

	// first two picks spend the dedicated bystander pool
	for want := 1; want >= 0; want-- {
		m.NotifyPickedBystander(PickNotification{PlayerID: bob.ID})
		ev, _ := aConn.last(EvBystanderCharge)
		payload := ev.Payload.(map[string]any)
		if payload["pool"] != "bystander" || payload["balance"] != want {
			t.Fatalf("charge = %v/%v, want bystander/%d", payload["pool"], payload["balance"], want)
		}
	}

	// pool exhausted: timer tokens now go at the custom rate of 2
	m.NotifyPickedBystander(PickNotification{PlayerID: bob.ID})
	ev, _ := aConn.last(EvBystanderCharge)
	payload := ev.Payload.(map[string]any)
	if payload["pool"] != "timer" || payload["balance"] != 3 {
		t.Fatalf("charge = %v/%v, want timer/3", payload["pool"], payload["balance"])
	}
}

func TestBystanderCustomClampsMinusOne(t *testing.T) {
	rules := domain.MatchRules{
		Gamemode:     domain.GamemodeCustom,
		TurnSeconds:  60,
		TimerTokens:  1,
		MaxAssassins: board.StandardAssassins,
	}
	match := testMatch(rules)
	m, aConn, _ := joinedMatch(t, match, nil)

	// 1 - 2 = -1 is clamped back to 0, so this is not yet a loss
	if st := m.NotifyPickedBystander(PickNotification{PlayerID: bob.ID}); !st.OK() {
		t.Fatalf("pick: %s", st)
	}
	ev, _ := aConn.last(EvBystanderCharge)
	if balance := ev.Payload.(map[string]any)["balance"]; balance != 0 {
		t.Errorf("balance %v, want clamped 0", balance)
	}
	if !m.hasMatch(match.ID) {
		t.Error("clamped charge ended the match")
	}
}

func TestAssassinPick(t *testing.T) {
	sb := newFakeScoreboard()
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, sb)

	if st := m.NotifyPickedAssassin(PickNotification{PlayerID: bob.ID, Position: 12}); !st.OK() {
		t.Fatalf("assassin pick: %s", st)
	}
	if !aConn.has(EvAssassinsRevealed) || !bConn.has(EvAssassinsRevealed) {
		t.Error("assassin reveal not delivered to both sides")
	}
	if sb.assassinsFor(bob.ID) != 1 {
		t.Errorf("guesser assassin counter = %d, want 1", sb.assassinsFor(bob.ID))
	}
	if sb.assassinsFor(alice.ID) != 0 {
		t.Error("spymaster assassin counter touched")
	}
	if m.hasMatch(match.ID) {
		t.Error("terminated match not removed")
	}
}

func TestAssassinStatsFailureNotifiesPickerOnly(t *testing.T) {
	sb := newFakeScoreboard()
	sb.failFor[bob.ID] = true
	match := testMatch(normalRules())
	m, aConn, bConn := joinedMatch(t, match, sb)

	m.NotifyPickedAssassin(PickNotification{PlayerID: bob.ID})

	if !bConn.has(EvStatsNotSaved) {
		t.Error("picker not warned about the failed update")
	}
	if aConn.has(EvStatsNotSaved) {
		t.Error("non-picker warned about the failed update")
	}
}

func TestDisconnectRemovesMatch(t *testing.T) {
	match := testMatch(normalRules())
	m, aConn, _ := joinedMatch(t, match, nil)

	m.Disconnect(bob.ID)

	if m.hasMatch(match.ID) {
		t.Error("match survived a participant disconnect")
	}
	if !aConn.has(EvCompanionDisconnected) {
		t.Error("counterpart not notified")
	}
	// no resume: both role mappings are gone
	if st := m.SendClue(alice.ID, "GHOST 1"); st != domain.StatusNotFound {
		t.Errorf("clue into removed match: got %s, want NOT_FOUND", st)
	}
}
