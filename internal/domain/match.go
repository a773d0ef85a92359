package domain

// Gamemode selects the rule preset for a match.
type Gamemode string

const (
	GamemodeNormal              Gamemode = "NORMAL"
	GamemodeCustom              Gamemode = "CUSTOM"
	GamemodeCounterintelligence Gamemode = "COUNTERINTELLIGENCE"
)

// Valid reports whether g is one of the three known gamemodes.
func (g Gamemode) Valid() bool {
	switch g {
	case GamemodeNormal, GamemodeCustom, GamemodeCounterintelligence:
		return true
	}
	return false
}

// CellRole is the role a board cell resolves to when picked.
type CellRole int

const (
	CellAgent     CellRole = 0
	CellBystander CellRole = 1
	CellAssassin  CellRole = 2
)

// BoardSize is the number of cells on each board (5x5 grid).
const BoardSize = 25

// Board is one player's keycard applied to the shared cell positions.
type Board [BoardSize]CellRole

// Counts returns the number of agent, bystander and assassin cells.
func (b Board) Counts() (agents, bystanders, assassins int) {
	for _, r := range b {
		switch r {
		case CellAgent:
			agents++
		case CellBystander:
			bystanders++
		case CellAssassin:
			assassins++
		}
	}
	return
}

// MatchRules is the resolved rule set a match runs under. MaxAssassins is
// never taken from the client; it is derived from the gamemode.
type MatchRules struct {
	Gamemode        Gamemode `json:"gamemode"`
	TurnSeconds     int      `json:"turn_seconds"`
	TimerTokens     int      `json:"timer_tokens"`
	BystanderTokens int      `json:"bystander_tokens"`
	MaxAssassins    int      `json:"max_assassins"`
}

// MatchConfiguration is what a client asks for. The numeric knobs only
// matter for CUSTOM and are clamped server-side.
type MatchConfiguration struct {
	Requester PlayerRef  `json:"requester"`
	Companion PlayerRef  `json:"companion"`
	Rules     MatchRules `json:"rules"`
}

// Match is the immutable definition handed to the orchestrator: two boards
// over one shared word selection.
type Match struct {
	ID             string            `json:"id"`
	Requester      PlayerRef         `json:"requester"`
	Companion      PlayerRef         `json:"companion"`
	Rules          MatchRules        `json:"rules"`
	RequesterBoard Board             `json:"requester_board"`
	CompanionBoard Board             `json:"companion_board"`
	Words          [BoardSize]string `json:"words"`
}

// PendingArrangedMatch is the handshake state between the proposal and the
// moment both participants acknowledge receipt of the match payload.
type PendingArrangedMatch struct {
	Match     *Match
	Confirmed map[int64]bool
}

// BothConfirmed reports whether requester and companion have both acknowledged.
func (p *PendingArrangedMatch) BothConfirmed() bool {
	return p.Confirmed[p.Match.Requester.ID] && p.Confirmed[p.Match.Companion.ID]
}
