package domain

import "time"

// ScoreRecord is one player's persisted lifetime results.
type ScoreRecord struct {
	PlayerID          int64     `db:"player_id" json:"player_id"`
	Username          string    `db:"username" json:"username"`
	Wins              int       `db:"wins" json:"wins"`
	FastestWinSeconds int       `db:"fastest_win_seconds" json:"fastest_win_seconds"`
	AssassinsRevealed int       `db:"assassins_revealed" json:"assassins_revealed"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Report is a moderation report filed by one player against another.
type Report struct {
	ID         int64     `db:"id" json:"id"`
	ReporterID int64     `db:"reporter_id" json:"reporter_id"`
	ReportedID int64     `db:"reported_id" json:"reported_id"`
	Reason     string    `db:"reason" json:"reason"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
