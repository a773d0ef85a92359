package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"duet_backend/internal/domain"
	"duet_backend/internal/logger"
)

// SMTPMailer sends party invitations over plain SMTP. Delivery is
// best-effort: the lobby keeps working when the relay is down.
type SMTPMailer struct {
	addr string // host:port
	from string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) SendPartyInvite(ctx context.Context, to *domain.Player, host domain.PlayerRef, code string) error {
	if m.addr == "" {
		return fmt.Errorf("smtp not configured")
	}
	if to == nil || to.Email == "" {
		return fmt.Errorf("recipient has no email")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to.Email)
	fmt.Fprintf(&b, "Subject: %s invited you to a party\r\n", host.Username)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "%s wants to play with you. Join with code %s.\r\n", host.Username, code)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, nil, m.from, []string{to.Email}, []byte(b.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Warn("mail: invite send failed", "to", to.Email, "error", err)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
