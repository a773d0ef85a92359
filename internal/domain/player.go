package domain

import "time"

// Player is the persisted account row.
type Player struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PlayerRef is the identity carried through the realtime layer.
// Two refs are the same player iff their IDs match.
type PlayerRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (p PlayerRef) Equal(other PlayerRef) bool {
	return p.ID == other.ID
}

func (p Player) Ref() PlayerRef {
	return PlayerRef{ID: p.ID, Username: p.Username}
}

// Friendship links two players; stored with the lower id first.
type Friendship struct {
	PlayerAID int64     `db:"player_a_id" json:"player_a_id"`
	PlayerBID int64     `db:"player_b_id" json:"player_b_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
