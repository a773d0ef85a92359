package realtime

import (
	"context"
	"time"

	"duet_backend/internal/domain"
)

// Connection is the per-client notifier capability handed to the managers at
// connect time. Deliver blocks until the event is accepted by the transport
// and reports a fault if the peer is unreachable; Abort tears the channel
// down. Deliver is never called while a manager state lock is held.
type Connection interface {
	Deliver(ev Event) error
	Abort()
}

// FriendDirectory is the external directory PresenceManager consults on
// connect and disconnect.
type FriendDirectory interface {
	FriendsOf(ctx context.Context, playerID int64) ([]domain.PlayerRef, error)
}

// PlayerDirectory resolves player accounts, used for e-mail invitations.
type PlayerDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.Player, error)
}

// ScoreboardStore persists match outcomes. All writes are best-effort from
// the orchestrator's point of view: a failed write never rolls back a game
// state transition.
type ScoreboardStore interface {
	RecordWin(ctx context.Context, playerID int64, elapsed time.Duration) error
	IncrementAssassins(ctx context.Context, playerID int64) error
}

// Mailer sends the side-channel party invitation.
type Mailer interface {
	SendPartyInvite(ctx context.Context, to *domain.Player, host domain.PlayerRef, code string) error
}
