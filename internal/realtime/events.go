package realtime

// Event is a single server → client notification.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Event types delivered through a Connection.
const (
	// presence
	EvFriendsOnline = "friends_online"
	EvFriendOnline  = "friend_online"
	EvFriendOffline = "friend_offline"
	EvKicked        = "kicked"

	// lobby
	EvPartyInvite    = "party_invite"
	EvGuestJoined    = "guest_joined"
	EvGuestLeft      = "guest_left"
	EvPartyAbandoned = "party_abandoned"

	// matchmaking
	EvMatchProposed  = "match_proposed"
	EvRequestPending = "request_pending"
	EvPlayersReady   = "players_ready"
	EvMatchCanceled  = "match_canceled"

	// match
	EvClue                  = "clue"
	EvTurnChanged           = "turn_changed"
	EvRolesChanged          = "roles_changed"
	EvTimerTokens           = "timer_tokens"
	EvBystanderCharge       = "bystander_charge"
	EvAgentPick             = "agent_pick"
	EvMatchWon              = "match_won"
	EvMatchTimeout          = "match_timeout"
	EvAssassinsRevealed     = "assassins_revealed"
	EvCompanionDisconnected = "companion_disconnected"
	EvStatsNotSaved         = "stats_not_saved"

	// transport
	EvAck   = "ack"
	EvError = "error"
)
