package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/dukex/docflow/pkg/template"
	mail "github.com/go-mail/mail/v2"
)

// ErrNoAddress is returned when the user has no known e-mail address.
var ErrNoAddress = errors.New("no e-mail address for user")

// AddressBook looks up the e-mail address of a user.
type AddressBook interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

// SMTPConfig configures the SMTP dialer.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	SkipTLSVerify bool
}

// Sender delivers a composed message.
type Sender interface {
	DialAndSend(m ...*mail.Message) error
}

// MailGateway renders notifications with the template set and sends them over SMTP.
type MailGateway struct {
	addresses AddressBook
	templates template.Set
	from      string
	sender    Sender
}

// NewDialer builds an SMTP dialer enforcing STARTTLS.
func NewDialer(config SMTPConfig) *mail.Dialer {
	port := config.Port
	if port == 0 {
		port = 587
	}

	dialer := mail.NewDialer(config.Host, port, config.Username, config.Password)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.TLSConfig = &tls.Config{
		ServerName:         config.Host,
		InsecureSkipVerify: config.SkipTLSVerify, //nolint:gosec // opt-in for local SMTP relays
	}

	return dialer
}

func NewMailGateway(addresses AddressBook, templates template.Set, from string, sender Sender) *MailGateway {
	return &MailGateway{
		addresses: addresses,
		templates: templates,
		from:      from,
		sender:    sender,
	}
}

func (g *MailGateway) Notify(ctx context.Context, userID string, kind Kind, data map[string]any) error {
	address, err := g.addresses.EmailOf(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up address of %s: %w", userID, err)
	}

	if address == "" {
		return fmt.Errorf("%w: %s", ErrNoAddress, userID)
	}

	rendered, err := g.templates.RenderMessage(string(kind), data)
	if err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", address)
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/plain", rendered.Body)

	err = g.sender.DialAndSend(m)
	if err != nil {
		return fmt.Errorf("failed to send %s notification to %s: %w", kind, userID, err)
	}

	return nil
}
