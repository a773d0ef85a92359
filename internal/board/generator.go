package board

import (
	"math/rand"
	"sync"

	"duet_backend/internal/domain"
	"duet_backend/internal/words"

	"github.com/google/uuid"
)

// Rule presets and ceilings. CUSTOM requests are clamped to the maxima and
// never raised; MaxAssassins is derived from the gamemode alone.
const (
	NormalTurnSeconds     = 60
	NormalTimerTokens     = 9
	NormalBystanderTokens = 0

	MaxTurnSeconds     = 180
	MaxTimerTokens     = 9
	MaxBystanderTokens = 9

	StandardAssassins            = 3
	CounterintelligenceAssassins = 16
)

// Generator builds matches from a private rand source. Safe for concurrent
// use; Generate is pure apart from consuming randomness.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate builds the full match definition for a configuration: resolved
// rules, both boards and the shared word selection.
func (g *Generator) Generate(cfg domain.MatchConfiguration) domain.Match {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Generate(cfg, g.rnd)
}

// Generate is the deterministic core: the same configuration and rand state
// always produce the same boards and words.
func Generate(cfg domain.MatchConfiguration, rnd *rand.Rand) domain.Match {
	rules := ResolveRules(cfg.Rules)

	keyA, keyB := keycards(rules.Gamemode)

	// One shared permutation of the 25 positions; each board applies its own
	// keycard through it, so a cell can differ in role between the boards.
	perm := rnd.Perm(domain.BoardSize)

	var boardA, boardB domain.Board
	for i, pos := range perm {
		boardA[pos] = keyA[i]
		boardB[pos] = keyB[i]
	}

	var selection [domain.BoardSize]string
	for i, idx := range rnd.Perm(words.Count)[:domain.BoardSize] {
		selection[i] = words.Dictionary[idx]
	}

	return domain.Match{
		ID:             uuid.NewString(),
		Requester:      cfg.Requester,
		Companion:      cfg.Companion,
		Rules:          rules,
		RequesterBoard: boardA,
		CompanionBoard: boardB,
		Words:          selection,
	}
}

// ResolveRules maps a client request onto an allowed rule set. NORMAL and
// COUNTERINTELLIGENCE ignore the numeric knobs entirely; CUSTOM clamps them.
func ResolveRules(req domain.MatchRules) domain.MatchRules {
	switch req.Gamemode {
	case domain.GamemodeCustom:
		return domain.MatchRules{
			Gamemode:        domain.GamemodeCustom,
			TurnSeconds:     clamp(req.TurnSeconds, MaxTurnSeconds),
			TimerTokens:     clamp(req.TimerTokens, MaxTimerTokens),
			BystanderTokens: clamp(req.BystanderTokens, MaxBystanderTokens),
			MaxAssassins:    StandardAssassins,
		}
	case domain.GamemodeCounterintelligence:
		return domain.MatchRules{
			Gamemode:        domain.GamemodeCounterintelligence,
			TurnSeconds:     NormalTurnSeconds,
			TimerTokens:     NormalTimerTokens,
			BystanderTokens: NormalBystanderTokens,
			MaxAssassins:    CounterintelligenceAssassins,
		}
	default:
		return domain.MatchRules{
			Gamemode:        domain.GamemodeNormal,
			TurnSeconds:     NormalTurnSeconds,
			TimerTokens:     NormalTimerTokens,
			BystanderTokens: NormalBystanderTokens,
			MaxAssassins:    StandardAssassins,
		}
	}
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

func keycards(mode domain.Gamemode) (a, b [domain.BoardSize]domain.CellRole) {
	if mode == domain.GamemodeCounterintelligence {
		return keycardCounterintelA, keycardCounterintelB
	}
	// CUSTOM plays on the NORMAL layouts; only the token economy differs.
	return keycardNormalA, keycardNormalB
}
