package domain

// Party is a lobby grouping: a host and at most one guest, addressed by a
// short code. Guest is only ever set while Host is.
type Party struct {
	Code  string     `json:"code"`
	Host  PlayerRef  `json:"host"`
	Guest *PlayerRef `json:"guest,omitempty"`
}

// HasGuest reports whether the guest slot is filled.
func (p *Party) HasGuest() bool { return p.Guest != nil }
